package couponcode

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeFormat(t *testing.T) {
	g, err := New(3, " st ")
	require.NoError(t, err)

	code := g.Code()
	require.True(t, strings.HasPrefix(code, "ST-"))
	require.Equal(t, strings.ToUpper(code), code)

	bare, err := New(4, "")
	require.NoError(t, err)
	require.NotContains(t, bare.Code(), "-")
}

func TestCodesAreUniqueUnderConcurrency(t *testing.T) {
	g, err := New(1, "ST")
	require.NoError(t, err)

	const workers, perWorker = 8, 500
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				code := g.Code()
				mu.Lock()
				seen[code] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*perWorker)
}

func TestInvalidNode(t *testing.T) {
	_, err := New(-1, "ST")
	require.Error(t, err)
}
