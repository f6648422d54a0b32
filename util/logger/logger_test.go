package logger

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	defer L.SetLevel(L.GetLevel())

	require.NoError(t, SetLevel("warn"))
	require.Equal(t, logrus.WarnLevel, L.GetLevel())
	require.Error(t, SetLevel("loud"))
	require.Equal(t, logrus.WarnLevel, L.GetLevel())
}

func TestComponent(t *testing.T) {
	out := L.Out
	defer func() { L.Out = out }()

	var buf bytes.Buffer
	L.Out = &buf
	Component("store").Error("part written")
	require.Contains(t, buf.String(), "store")
	require.Contains(t, buf.String(), "part written")
}
