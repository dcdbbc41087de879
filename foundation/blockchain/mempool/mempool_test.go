package mempool_test

import (
	"sync"
	"testing"

	"github.com/ardanlabs/slowchain/foundation/blockchain/database"
	"github.com/ardanlabs/slowchain/foundation/blockchain/mempool"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestCRUD(t *testing.T) {
	type table struct {
		name string
		txs  []database.Tx
	}

	tt := []table{
		{
			name: "basic",
			txs: []database.Tx{
				{Sender: "a", Receiver: "b", Amount: 1},
				{Sender: "c", Receiver: "d", Amount: 2},
				{Sender: "a", Receiver: "b", Amount: 1},
				database.NewRewardTx("miner1"),
			},
		},
	}

	t.Log("Given the need to validate mempool api.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a set of transaction.", testID)
			{
				f := func(t *testing.T) {
					mp := mempool.New()

					for i, tx := range tst.txs {
						if n := mp.Add(tx); n != i+1 {
							t.Fatalf("\t%s\tTest %d:\tShould get back the new pool size: got %d, exp %d", failed, testID, n, i+1)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould be able to add transactions.", success, testID)

					if mp.Count() != len(tst.txs) {
						t.Fatalf("\t%s\tTest %d:\tShould keep duplicate submissions: got %d", failed, testID, mp.Count())
					}
					t.Logf("\t%s\tTest %d:\tShould keep duplicate submissions.", success, testID)

					picked := mp.PickAll()
					for i, tx := range picked {
						if tx != tst.txs[i] {
							t.Fatalf("\t%s\tTest %d:\tShould keep submission order at %d.", failed, testID, i)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould keep submission order.", success, testID)

					picked[0].Amount = 99
					if mp.PickAll()[0].Amount == 99 {
						t.Fatalf("\t%s\tTest %d:\tShould not share memory with a copy.", failed, testID)
					}

					drained := mp.Drain()
					if len(drained) != len(tst.txs) || mp.Count() != 0 {
						t.Fatalf("\t%s\tTest %d:\tShould drain the pool: got %d, left %d", failed, testID, len(drained), mp.Count())
					}
					t.Logf("\t%s\tTest %d:\tShould drain the pool.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func TestConcurrentDrain(t *testing.T) {
	const adds = 500

	mp := mempool.New()

	var mu sync.Mutex
	var total int

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < adds; i++ {
			mp.Add(database.Tx{Sender: "a", Receiver: "b", Amount: float64(i)})
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < adds; i++ {
			n := len(mp.Drain())
			mu.Lock()
			total += n
			mu.Unlock()
		}
	}()

	wg.Wait()
	total += len(mp.Drain())

	if total != adds {
		t.Fatalf("Should not lose or duplicate transactions: got %d, exp %d", total, adds)
	}
}
