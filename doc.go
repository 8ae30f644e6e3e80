// Package n1c provides the consistency and authorization core of a
// single-authority digital currency.
//
// The ledger is designed as a library, not a service. Import it directly into
// your Go application. It provides:
//
//   - Accounts keyed by Ed25519-derived addresses, each with a balance and
//     the ordered history of transactions that touched it
//   - Signed transfers authorized atomically: resolution, balance, signature
//     and structure checks run under one lock with the commit
//   - Anchors, intermediaries that charge a spread fee and a tax on the
//     transfers routed through them; both are burned
//   - Balance recomputation and integrity verification by replaying history
//   - Batched background persistence to memory, file, PostgreSQL, SQLite or
//     MongoDB stores
//   - Plugin hooks for audit trails and metrics
//
// # Quick Start
//
//	issuerPub, issuerKey, _ := signing.GenerateKey(rand.Reader)
//	_ = issuerPub
//
//	l, err := n1c.New(memory.New(), n1c.WithIssuer(issuerKey))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	alice, _ := l.CreateWallet(ctx)
//	bob, _ := l.CreateWallet(ctx)
//	l.Mint(ctx, alice.Address, n1c.N1C(1000))
//
// # Transfers
//
// A transfer is prepared, signed by the sender, then submitted:
//
//	tx, err := l.Prepare(ctx, alice.Address, bob.Address, n1c.N1C(200), n1c.AnchorRefOf("anchor-eu"))
//	key, _ := l.Keyring().PrivateKey(alice.Address)
//	tx.Sign(key)
//	committed, err := l.Submit(ctx, n1c.ProposalOf(tx))
//
// The signature covers id, parties, amount, fee, timestamp, tax and anchor,
// so a proposal only commits with the figures its sender saw. The sender
// pays amount+fee+tax; the receiver gets amount.
//
// # Consistency
//
// Every stored balance equals the sum of its history's deltas. VerifyIntegrity
// checks that without changing anything; RecomputeBalance rebuilds one
// balance from history and overwrites it. Restore refuses store contents
// that do not pass a full check.
//
// All monetary values are integer minor units: 1 n1c is 10^8 units. Rates
// are decimals in percent and round half to even once per charge.
package n1c
