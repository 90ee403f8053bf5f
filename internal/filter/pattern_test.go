package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternStar(t *testing.T) {
	p, err := compilePattern("*.log")
	require.NoError(t, err)

	// Matches basename.
	assert.True(t, p.match("app.log", false))
	assert.True(t, p.match("dir/app.log", false))

	// Does not match partial.
	assert.False(t, p.match("app.log.bak", false))
	assert.False(t, p.match("app.txt", false))
}

func TestPatternDoubleStar(t *testing.T) {
	p, err := compilePattern("**/*.iso")
	require.NoError(t, err)

	assert.True(t, p.match("image.iso", false))
	assert.True(t, p.match("download/linux/image.iso", false))
	assert.False(t, p.match("image.img", false))
}

func TestPatternAnchored(t *testing.T) {
	p, err := compilePattern("/swapfile")
	require.NoError(t, err)

	assert.True(t, p.match("swapfile", false))
	assert.False(t, p.match("sub/swapfile", false))
}

func TestPatternDirOnly(t *testing.T) {
	p, err := compilePattern("@tmp/")
	require.NoError(t, err)

	assert.True(t, p.match("@tmp", true))
	assert.True(t, p.match("share/@tmp", true))
	assert.False(t, p.match("@tmp", false)) // not a dir
}

func TestPatternQuestion(t *testing.T) {
	p, err := compilePattern("file?.txt")
	require.NoError(t, err)

	assert.True(t, p.match("file1.txt", false))
	assert.True(t, p.match("fileA.txt", false))
	assert.False(t, p.match("file12.txt", false))
	assert.False(t, p.match("file/.txt", false)) // ? does not match /
}

func TestPatternContainingSlash(t *testing.T) {
	// Pattern containing / but not leading / is anchored per rsync.
	p, err := compilePattern("volume1/docker/*.log")
	require.NoError(t, err)

	assert.True(t, p.match("volume1/docker/daemon.log", false))
	assert.False(t, p.match("other/volume1/docker/daemon.log", false))
}

func TestPatternCharClass(t *testing.T) {
	p, err := compilePattern("vol[12]/*")
	require.NoError(t, err)

	assert.True(t, p.match("vol1/a", false))
	assert.True(t, p.match("vol2/b", false))
	assert.False(t, p.match("vol3/c", false))
}
