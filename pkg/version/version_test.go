package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestStringShortensCommit(t *testing.T) {
	info := Info{Version: "1.4.0", GitCommit: "0123456789abcdef"}
	assert.Equal(t, "1.4.0 (0123456)", info.String())

	info.GitCommit = "abc"
	assert.Equal(t, "1.4.0 (abc)", info.String())
}
