package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/utils/config"
)

func TestReportExitCode(t *testing.T) {
	assert.Equal(t, 0, report(nil, nil))
	assert.Equal(t, 0, report(nil, fmt.Errorf("worker_count=4: %w", context.Canceled)))
	assert.Equal(t, 1, report(nil, fmt.Errorf("worker_count=0: %w", config.ErrConfiguration)))
	assert.Equal(t, 1, report(nil, errors.New("disk full")))
}

func TestParseValues(t *testing.T) {
	assert.Equal(t, []int{1, 2, 4, 8}, parseValues("1, 2,4 ,8"))
	assert.Panics(t, func() { parseValues("1,x") })
}
