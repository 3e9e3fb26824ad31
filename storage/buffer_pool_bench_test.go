package storage

import (
	"math/rand"
	"testing"

	"github.com/pingcap/go-ycsb/pkg/generator"

	"github.com/quilldb/quill/common"
)

// BenchmarkBufferPool_Zipfian drives the pool with a zipfian-skewed access
// pattern over a working set larger than the pool, the shape most OLTP page
// traffic takes. Reported ns/op covers one fetch/unpin pair.
func BenchmarkBufferPool_Zipfian(b *testing.B) {
	const (
		poolSize = 64
		numPages = 320
	)
	bpm := NewBufferPoolManager(poolSize, NewMemoryDiskManager(), 2, nil, nil)

	pids := make([]common.PageID, numPages)
	for i := range pids {
		f := bpm.NewPage()
		if f == nil {
			b.Fatal("NewPage failed during setup")
		}
		pids[i] = f.PageID()
		bpm.UnpinPage(pids[i], false, common.AccessUnknown)
	}

	r := rand.New(rand.NewSource(1))
	zip := generator.NewZipfianWithRange(0, int64(numPages-1), generator.ZipfianConstant)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pid := pids[zip.Next(r)]
		f := bpm.FetchPage(pid, common.AccessScan)
		if f == nil {
			b.Fatal("FetchPage failed")
		}
		bpm.UnpinPage(pid, false, common.AccessScan)
	}

	b.ReportMetric(float64(bpm.Stats().Hits)/float64(bpm.Stats().Hits+bpm.Stats().Misses), "hit-ratio")
}
