package book

import (
	"sync"
)

// Order identifies the purchase a production run belongs to.
type Order struct {
	ID            string    `yaml:"id" json:"id"`
	CustomerName  string    `yaml:"customerName" json:"customerName"`
	CustomerPhone string    `yaml:"customerPhone" json:"customerPhone"`
	Title         string    `yaml:"title" json:"title"`
	Recipient     string    `yaml:"recipient" json:"recipient"`
	Language      string    `yaml:"language" json:"language"`
	Direction     Direction `yaml:"direction" json:"direction"`
	ProductID     string    `yaml:"productId" json:"productId"`
}

// Session is the caller-owned state of one production run. The orchestrator and
// render loop append to it; observers read copies. All writes go through the
// methods below, which serialize on an internal mutex.
type Session struct {
	Order Order
	Input StoryInput
	Style StyleLock

	// OnPage and OnLog, when set, are called after each append and before the
	// pipeline moves on. They must not call back into the session's setters.
	OnPage func(Page)
	OnLog  func(WorkflowLog)

	mu        sync.Mutex
	blueprint *Blueprint
	plan      SpreadPlan
	prompts   []string
	pages     []Page
	cover     []byte
	logs      []WorkflowLog
}

// NewSession constructs a session for an order.
func NewSession(order Order, input StoryInput, style StyleLock) *Session {
	return &Session{Order: order, Input: input, Style: style}
}

// AppendPage publishes a finished page.
func (s *Session) AppendPage(p Page) {
	s.mu.Lock()
	s.pages = append(s.pages, p)
	hook := s.OnPage
	s.mu.Unlock()
	if hook != nil {
		hook(p)
	}
}

// ReplaceIllustration swaps the raster of an existing page after regeneration.
func (s *Session) ReplaceIllustration(number int, raster []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.pages {
		if s.pages[i].Number == number {
			s.pages[i].Illustration = raster
			return true
		}
	}
	return false
}

// Pages returns a copy of the pages produced so far, in spread order.
func (s *Session) Pages() []Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Page, len(s.pages))
	copy(out, s.pages)
	return out
}

// ResetPages discards the pages and cover of a previous raster pass.
func (s *Session) ResetPages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = nil
	s.cover = nil
}

// SetCover stores the raw cover illustration.
func (s *Session) SetCover(raster []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cover = raster
}

// Cover returns the raw cover illustration, or nil before it is rendered.
func (s *Session) Cover() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cover
}

// AppendLog records a workflow log entry.
func (s *Session) AppendLog(entry WorkflowLog) {
	s.mu.Lock()
	s.logs = append(s.logs, entry)
	hook := s.OnLog
	s.mu.Unlock()
	if hook != nil {
		hook(entry)
	}
}

// Logs returns a copy of the workflow log.
func (s *Session) Logs() []WorkflowLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WorkflowLog, len(s.logs))
	copy(out, s.logs)
	return out
}

// SetApproved records the approved blueprint, plan, and prompts for the manifest.
func (s *Session) SetApproved(blueprint *Blueprint, plan SpreadPlan, prompts []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blueprint = blueprint
	s.plan = append(SpreadPlan(nil), plan...)
	s.prompts = append([]string(nil), prompts...)
}

// Approved returns what SetApproved stored.
func (s *Session) Approved() (*Blueprint, SpreadPlan, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blueprint, append(SpreadPlan(nil), s.plan...), append([]string(nil), s.prompts...)
}
