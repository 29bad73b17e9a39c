package services

import (
  "testing"

  "github.com/stretchr/testify/require"
)

func TestEstimateTokenCount(t *testing.T) {
  require.Equal(t, 0, estimateTokenCount(""))
  require.Equal(t, 1, estimateTokenCount("ab"))
  require.Equal(t, 1, estimateTokenCount("abc"))
  require.Equal(t, 2, estimateTokenCount("abcd"))
  require.Equal(t, 100, estimateTokenCount(string(make([]byte, 300))))
}
