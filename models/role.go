package models

import "strings"

// Role 是封闭枚举；所有比较都走 ParseRole / HasRole，不再到处 ToLower
type Role string

const (
	RoleStudent       Role = "STUDENT"
	RoleAdministrator Role = "ADMINISTRATOR" // 院系管理员，管理自己名下的资产/空间
	RoleAdmin         Role = "ADMIN"         // 全局超级管理员
)

// ParseRole accepts the canonical names plus the legacy spellings seen in older clients.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "student", "user", "tenant":
		return RoleStudent, true
	case "administrator", "manager", "landlord":
		return RoleAdministrator, true
	case "admin", "super_admin", "superadmin":
		return RoleAdmin, true
	}
	return "", false
}

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleAdministrator || r == RoleAdmin
}

// CanManage reports whether the role may own assets and spaces.
func (r Role) CanManage() bool { return r == RoleAdministrator || r == RoleAdmin }

func (r Role) IsSuperAdmin() bool { return r == RoleAdmin }

// Actor 是引擎层看到的调用者
type Actor struct {
	ID   string
	Name string
	Role Role
}

// SystemActor is the synthetic identity used by scheduled jobs.
var SystemActor = Actor{Name: "SYSTEM", Role: RoleAdmin}

func (a Actor) IsSystem() bool { return a.ID == "" && a.Name == SystemActor.Name }

// Owns is the single ownership rule: super admins own everything.
func (a Actor) Owns(ownerID string) bool {
	return a.Role.IsSuperAdmin() || (a.ID != "" && a.ID == ownerID)
}
