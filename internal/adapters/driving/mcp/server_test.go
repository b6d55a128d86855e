package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil pipeline returns error", func(t *testing.T) {
		ports := &Ports{Health: &mockHealthService{}}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingPipeline)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Pipeline: &mockPipeline{},
			Health:   &mockHealthService{},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil pipeline returns error", func(t *testing.T) {
		ports := &Ports{}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingPipeline)
	})

	t.Run("nil health returns error", func(t *testing.T) {
		ports := &Ports{Pipeline: &mockPipeline{}}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingHealthService)
	})

	t.Run("records are optional", func(t *testing.T) {
		ports := &Ports{
			Pipeline: &mockPipeline{},
			Health:   &mockHealthService{},
		}
		assert.NoError(t, ports.Validate())
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Pipeline: &mockPipeline{},
			Health:   &mockHealthService{},
			Records:  &mockRecordService{},
		}
		assert.NoError(t, ports.Validate())
	})
}
