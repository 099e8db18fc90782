package mocks

import (
	"context"
	"sync"
	"time"

	"vidpulse/internal/core"
)

// MockStore provides a mock implementation of the user source and flag store
type MockStore struct {
	ListUsersFunc     func(ctx context.Context) ([]core.User, error)
	SaveAnalysisFunc  func(ctx context.Context, userID string, result *core.AnalysisResult, at time.Time) error
	MarkEmailSentFunc func(ctx context.Context, userID string, at time.Time) error

	mu            sync.Mutex
	SavedAnalyses []string
	SentEmails    []string
}

func (m *MockStore) ListUsers(ctx context.Context) ([]core.User, error) {
	if m.ListUsersFunc != nil {
		return m.ListUsersFunc(ctx)
	}
	return []core.User{}, nil
}

func (m *MockStore) SaveAnalysis(ctx context.Context, userID string, result *core.AnalysisResult, at time.Time) error {
	m.mu.Lock()
	m.SavedAnalyses = append(m.SavedAnalyses, userID)
	m.mu.Unlock()
	if m.SaveAnalysisFunc != nil {
		return m.SaveAnalysisFunc(ctx, userID, result, at)
	}
	return nil
}

func (m *MockStore) MarkEmailSent(ctx context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	m.SentEmails = append(m.SentEmails, userID)
	m.mu.Unlock()
	if m.MarkEmailSentFunc != nil {
		return m.MarkEmailSentFunc(ctx, userID, at)
	}
	return nil
}

// MockAnalyzer provides a mock implementation of the analysis client
type MockAnalyzer struct {
	AnalyzeFunc func(ctx context.Context, req core.AnalysisRequest) (*core.AnalysisResult, error)

	mu       sync.Mutex
	Requests []core.AnalysisRequest
}

func (m *MockAnalyzer) Analyze(ctx context.Context, req core.AnalysisRequest) (*core.AnalysisResult, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, req)
	}
	return &core.AnalysisResult{
		SearchQueries: []string{"mock query"},
		VideosCount:   5,
		MarketingStrategy: core.StrategyDocument{
			core.KeyObservations: "- Mock observation one\n- Mock observation two",
		},
	}, nil
}

// MockMailer provides a mock implementation of the email transport
type MockMailer struct {
	SendFunc func(ctx context.Context, msg core.EmailMessage) (string, error)

	mu       sync.Mutex
	Messages []core.EmailMessage
}

func (m *MockMailer) Send(ctx context.Context, msg core.EmailMessage) (string, error) {
	m.mu.Lock()
	m.Messages = append(m.Messages, msg)
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	return "mock-message-1", nil
}
