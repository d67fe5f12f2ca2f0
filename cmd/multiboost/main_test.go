package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSplitMetricCodesTrimsAndDropsEmpty(t *testing.T) {
	assert.Equal(t, []string{"e01", "w01", "auc"}, splitMetricCodes("e01, w01,,auc"))
	assert.Nil(t, splitMetricCodes(""))
}

func TestMinutesToDurationZeroOrNegativeDisablesLimit(t *testing.T) {
	assert.Equal(t, time.Duration(0), minutesToDuration(0))
	assert.Equal(t, time.Duration(0), minutesToDuration(-5))
	assert.Equal(t, 3*time.Minute, minutesToDuration(3))
}
