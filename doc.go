// Package rosca provides a rotating savings pool ledger for Go applications.
//
// A pool collects one contribution per participant per cycle. Once the
// number of contributors reaches the operator's quota, the participant at
// the head of the queue requests the pooled total and the operator approves
// the payout. When every queued participant has been paid the pool rolls
// into a new cycle and starts collecting again.
//
// rosca is designed as a library, not a service. It provides:
//
//   - A lock-free core state machine (Ledger) over one pool's state
//   - A multi-pool Engine with per-pool locking and atomic persistence
//   - Memory, PostgreSQL, SQLite and MongoDB stores
//   - An append-only journal of committed transitions
//   - Plugins for audit trails, metrics and event publishing
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/rosca"
//	    "github.com/xraph/rosca/pool"
//	    "github.com/xraph/rosca/store/memory"
//	)
//
//	engine := rosca.NewEngine(memory.New(), transferer)
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
//	p, err := engine.CreatePool(ctx, "march circle", pool.Config{
//	    Operator:        "treasurer",
//	    MinContribution: rosca.USD(1000),
//	    Quota:           3,
//	})
//
//	err = engine.Contribute(ctx, p.ID, "alice", rosca.USD(1000))
//
// # Payouts
//
// The queue head requests the total; the operator approves it. The
// Transferer moves the funds before any state changes, so a failed transfer
// leaves the request pending and the pool untouched:
//
//	req, err := engine.RequestPayout(ctx, p.ID, "alice")
//	payout, err := engine.ApprovePayout(ctx, p.ID, "treasurer", req.Requester)
//
// All monetary values use integer minor units. Money values in different
// currencies never mix.
//
// # TypeID
//
// Records use TypeID identifiers:
//
//	pool_01h2xcejqtf2nbrexx3vqjhp41  // Pool
//	req_01h2xcejqtf2nbrexx3vqjhp41   // Payout request
//	pay_01h455vb4pex5vsknk084sn02q   // Payout
//	jrnl_01h455vb4pex5vsknk084sn02q  // Journal entry
package rosca
