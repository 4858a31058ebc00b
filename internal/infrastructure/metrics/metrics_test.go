package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"paydocs/internal/core/apperror"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", context.DeadlineExceeded, ErrorTypeDeadlineExceeded},
		{"wrapped deadline", fmt.Errorf("job: %w", context.DeadlineExceeded), ErrorTypeDeadlineExceeded},
		{"integrity", apperror.NewIntegrity("two transit lines"), ErrorTypeIntegrity},
		{"conflict", apperror.NewConcurrentModification("payment_document", "x"), ErrorTypeConflict},
		{"user", apperror.NewUserError("missing journal"), ErrorTypeUser},
		{"validation", apperror.NewValidation("bad"), ErrorTypeUser},
		{"unknown", errors.New("boom"), ErrorTypeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyError(tc.err))
		})
	}
}

func TestScheduler_Counters(t *testing.T) {
	m := NewScheduler(prometheus.NewRegistry())

	m.IncJobRun("expire_documents")
	m.IncJobRun("expire_documents")
	m.AddItems("expire_documents", "paid", 3)
	m.AddItems("expire_documents", "skipped", 0)
	m.IncJobError("expire_documents", apperror.NewIntegrity("x"))
	m.ObserveJobDuration("expire_documents", 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("expire_documents")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.itemsProcessed.WithLabelValues("expire_documents", "paid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobErrors.WithLabelValues("expire_documents", ErrorTypeIntegrity)))
}

func TestNilCollectorsAreNoops(t *testing.T) {
	var s *Scheduler
	var h *HTTP
	assert.NotPanics(t, func() {
		s.IncJobRun("x")
		s.AddItems("x", "y", 1)
		s.IncJobError("x", errors.New("e"))
		h.ObserveRequest("/x", "GET", 200, time.Millisecond)
	})
}
