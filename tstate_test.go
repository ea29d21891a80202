package htimer

import (
	"math/rand"
	"sync"
	"testing"
	"unsafe"
)

func TestTStateConsts(t *testing.T) {
	var x tState
	maxVal := uint64(1)<<(unsafe.Sizeof(x.atomicV)*8) - 1
	if (uint64(stMask)<<stBpos)|uint64(idxMask) > maxVal {
		t.Errorf("packed fields do not fit the state word\n")
	}
	if WheelSize >= int(idxFree) || WheelSize >= int(idxNone) {
		t.Errorf("bucket indexes overlap the list index sentinels\n")
	}
}

func TestTStateOps(t *testing.T) {
	const iterations = 10000
	for i := 0; i < iterations; i++ {
		var x tState
		st0 := TimerState(rand.Intn(256))
		st := TimerState(rand.Intn(256))
		idx := uint16(rand.Intn(65536))

		mix := rand.Intn(6)
		switch mix {
		case 0:
			// set state, then idx
			x.setState(st0)
			x.setState(st)
			x.setIdx(idx)
		case 1:
			// set idx, then state
			x.setIdx(idx)
			x.setState(st0)
			x.setState(st)
		case 2:
			// mix state & idx
			x.setState(st0)
			x.setIdx(idx)
			x.setState(st)
		case 3:
			x.setAll(st0, idx)
			x.setState(st)
		case 4:
			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				x.setState(st0)
				x.setState(st)
				wg.Done()
			}()
			go func() {
				x.setIdx(idx)
				wg.Done()
			}()
			wg.Wait()
		case 5:
			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				x.setIdx(idx)
				wg.Done()
			}()
			go func() {
				x.setState(st0)
				x.setState(st)
				wg.Done()
			}()
			wg.Wait()
		default:
			t.Fatalf("uncovered internal test case %d\n", mix)
		}
		if x.state() != st {
			t.Errorf("state mismatch, expected 0x%x, got 0x%x (mix %d)\n",
				uint8(st), uint8(x.state()), mix)
		}
		if x.idx() != idx {
			t.Errorf("idx mismatch, expected %d, got %d (mix %d)\n",
				idx, x.idx(), mix)
		}
		st1, idx1 := x.getAll()
		if st1 != st || idx1 != idx {
			t.Errorf("getAll mismatch, expected %d/%d, got %d/%d (mix %d)\n",
				uint8(st), idx, uint8(st1), idx1, mix)
		}
	}
}
