package mcp

import (
	"context"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
)

// mockPipeline is a mock implementation of driving.Pipeline.
type mockPipeline struct {
	result *domain.PipelineResult
	got    *domain.QueryRequest
	keyLen int
}

func (m *mockPipeline) Process(_ context.Context, req domain.QueryRequest) *domain.PipelineResult {
	m.got = &req
	m.keyLen = len(req.DecryptionKey)
	if m.result != nil {
		return m.result
	}
	return &domain.PipelineResult{QueryID: req.QueryID, State: domain.StateRecorded}
}

// mockHealthService is a mock implementation of driving.HealthService.
type mockHealthService struct {
	report *domain.HealthReport
}

func (m *mockHealthService) Check(_ context.Context) *domain.HealthReport {
	if m.report == nil {
		return &domain.HealthReport{Status: domain.HealthOK}
	}
	return m.report
}

// mockRecordService is a mock implementation of driving.RecordService.
type mockRecordService struct {
	record *domain.ProcessedQueryRecord
	err    error
}

func (m *mockRecordService) Get(_ context.Context, _ string) (*domain.ProcessedQueryRecord, error) {
	return m.record, m.err
}
