// Package mailer delivers transactional email. Delivery never blocks or fails
// the business operation that triggered it.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"sync"

	"github.com/bhumi3292/VaultLease-sub001/config"
)

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SMTPSender 未配置 SMTP 时进入开发模式：只打日志，不报错
type SMTPSender struct {
	conf config.SMTPConfig
	log  *slog.Logger
}

func NewSMTPSender(conf config.SMTPConfig, log *slog.Logger) *SMTPSender {
	return &SMTPSender{conf: conf, log: log}
}

func (s *SMTPSender) Send(_ context.Context, m Message) error {
	if !s.conf.Enabled() {
		s.log.Info("mail (dev, not sent)", "to", m.To, "subject", m.Subject, "text", m.Text)
		return nil
	}
	fromAddr := s.conf.From
	if fromAddr == "" {
		fromAddr = s.conf.Username
	}
	msg := buildMIMEWithFromName(s.conf.AppName, fromAddr, m)

	var auth smtp.Auth
	if s.conf.Username != "" {
		auth = smtp.PlainAuth("", s.conf.Username, s.conf.Password, s.conf.Host)
	}
	addr := s.conf.Host + ":" + s.conf.Port
	if err := smtp.SendMail(addr, auth, fromAddr, []string{m.To}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", m.To, err)
	}
	return nil
}

const mimeBoundary = "vaultlease-alt-boundary"

func buildMIMEWithFromName(fromName, fromAddr string, m Message) string {
	headers := []string{
		fmt.Sprintf("From: %s <%s>", fromName, fromAddr),
		fmt.Sprintf("To: %s", m.To),
		fmt.Sprintf("Subject: %s", m.Subject),
		"MIME-Version: 1.0",
	}
	if m.HTML == "" {
		headers = append(headers, "Content-Type: text/plain; charset=UTF-8")
		return strings.Join(headers, "\r\n") + "\r\n\r\n" + m.Text
	}
	if m.Text == "" {
		headers = append(headers, "Content-Type: text/html; charset=UTF-8")
		return strings.Join(headers, "\r\n") + "\r\n\r\n" + m.HTML
	}
	// 两种正文都有：multipart/alternative
	headers = append(headers, fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q", mimeBoundary))
	var b strings.Builder
	b.WriteString(strings.Join(headers, "\r\n"))
	b.WriteString("\r\n\r\n")
	for _, part := range []struct{ ctype, body string }{{"text/plain", m.Text}, {"text/html", m.HTML}} {
		fmt.Fprintf(&b, "--%s\r\nContent-Type: %s; charset=UTF-8\r\n\r\n%s\r\n", mimeBoundary, part.ctype, part.body)
	}
	fmt.Fprintf(&b, "--%s--\r\n", mimeBoundary)
	return b.String()
}

// Dispatcher 异步投递：固定数量 worker 消费有界队列，失败只记日志
type Dispatcher struct {
	next  Sender
	log   *slog.Logger
	queue chan Message
	wg    sync.WaitGroup

	// mu 保护 closed；Send 持读锁入队，Close 持写锁关闭队列
	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(next Sender, log *slog.Logger, workers, buffer int) *Dispatcher {
	if workers <= 0 {
		workers = 2
	}
	if buffer <= 0 {
		buffer = 64
	}
	d := &Dispatcher{next: next, log: log, queue: make(chan Message, buffer)}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for m := range d.queue {
		if err := d.next.Send(context.Background(), m); err != nil {
			d.log.Error("mail delivery failed", "to", m.To, "subject", m.Subject, "err", err)
		}
	}
}

// Send 只入队；队列满时丢弃并记录
func (d *Dispatcher) Send(_ context.Context, m Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn("mail dropped after shutdown", "to", m.To, "subject", m.Subject)
		return nil
	}
	select {
	case d.queue <- m:
	default:
		d.log.Warn("mail queue full, dropping", "to", m.To, "subject", m.Subject)
	}
	return nil
}

// Close 停止接收并等待队列清空
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// Memory 把邮件留在内存里，测试用
type Memory struct {
	mu   sync.Mutex
	sent []Message
}

func (m *Memory) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *Memory) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}

func (m *Memory) To(addr string) []Message {
	var out []Message
	for _, msg := range m.Sent() {
		if msg.To == addr {
			out = append(out, msg)
		}
	}
	return out
}
