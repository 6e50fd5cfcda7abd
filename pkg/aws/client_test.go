package aws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/younsl/snapshot-profiler/internal/errs"
)

// isolateAWSConfig keeps the developer's environment and shared files out of region resolution
func isolateAWSConfig(t *testing.T) {
	t.Helper()
	empty := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))

	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_DEFAULT_REGION", "")
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "")
	t.Setenv("AWS_CONFIG_FILE", empty)
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", empty)
}

func TestLoadConfigOffInstance(t *testing.T) {
	isolateAWSConfig(t)
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	start := time.Now()
	_, err := LoadConfig(context.Background(), "", "", MetadataOptions{Endpoint: srv.URL, Timeout: time.Second})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.MetadataUnavailable))
	assert.Contains(t, err.Error(), "must run on the EC2 instance")
	assert.NotZero(t, atomic.LoadInt32(&requests))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestLoadConfigRegionFromMetadata(t *testing.T) {
	isolateAWSConfig(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/latest/api/token":
			w.Header().Set("X-aws-ec2-metadata-token-ttl-seconds", "21600")
			_, _ = w.Write([]byte(testToken))
		case "/latest/dynamic/instance-identity/document":
			_, _ = w.Write([]byte(`{"region": "ap-northeast-2", "instanceId": "i-abc"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	cfg, err := LoadConfig(context.Background(), "", "", MetadataOptions{Endpoint: srv.URL, Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "ap-northeast-2", cfg.Region)
}

func TestLoadConfigExplicitRegionSkipsMetadata(t *testing.T) {
	isolateAWSConfig(t)
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	cfg, err := LoadConfig(context.Background(), "eu-west-1", "", MetadataOptions{Endpoint: srv.URL, Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.Equal(t, int32(0), atomic.LoadInt32(&requests))
}

func TestWaitErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind errs.Kind
	}{
		{"budget exhausted", errors.New("exceeded max wait time for SnapshotCompleted waiter"), errs.WaiterTimeout},
		{"failure state", errors.New("waiter state transitioned to Failure"), errs.ResourceFailed},
		{"interrupted", errors.Wrap(context.Canceled, "request cancelled while waiting"), errs.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := waitError("SnapshotCompleted", "snap-1", tt.err)
			assert.Equal(t, tt.kind, errs.KindOf(err))
		})
	}
}
