// Package bank provides an in-memory value store that backs the transfer
// and escrow capabilities of a pool. It is used by the daemon and tests;
// production deployments plug in their own payment rails.
package bank

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/xraph/rosca"
	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/types"
)

var (
	_ rosca.Transferer = (*Vault)(nil)
	_ rosca.Escrow     = (*Vault)(nil)
)

var (
	// ErrInsufficientFunds is returned when the source account cannot cover a movement.
	ErrInsufficientFunds = errors.New("bank: insufficient funds")
	// ErrRejected is returned when the destination refuses incoming funds.
	ErrRejected = errors.New("bank: recipient rejected transfer")
	// ErrNegativeAmount is returned for movements below zero.
	ErrNegativeAmount = errors.New("bank: negative amount")
	// ErrKeyReused is returned when a completed key is replayed for a different movement.
	ErrKeyReused = errors.New("bank: idempotency key reused for a different movement")
)

// PoolAccount is the account name holding a pool's funds.
func PoolAccount(poolID id.PoolID) string { return "pool:" + poolID.String() }

type movement struct {
	from, to string
	amount   types.Money
}

// Vault holds balances per account. Keyed movements are applied at most
// once; an empty key is never deduplicated.
type Vault struct {
	mu       sync.Mutex
	balances map[string]types.Money
	rejected map[types.Identity]bool
	applied  map[string]movement
}

// NewVault returns an empty Vault.
func NewVault() *Vault {
	return &Vault{
		balances: make(map[string]types.Money),
		rejected: make(map[types.Identity]bool),
		applied:  make(map[string]movement),
	}
}

// Deposit credits account with amount.
func (v *Vault) Deposit(account string, amount types.Money) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.credit(account, amount)
}

// Balance returns the balance of account.
func (v *Vault) Balance(account string) types.Money {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balances[account]
}

// Reject makes every future transfer to who fail.
func (v *Vault) Reject(who types.Identity) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rejected[who] = true
}

// Accept reverses Reject.
func (v *Vault) Accept(who types.Identity) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.rejected, who)
}

// Transfer moves amount from the pool account to to.
func (v *Vault) Transfer(_ context.Context, key string, from id.PoolID, to types.Identity, amount types.Money) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	m := movement{from: PoolAccount(from), to: string(to), amount: amount}
	if done, err := v.replayed(key, m); done || err != nil {
		return err
	}
	if v.rejected[to] {
		return fmt.Errorf("%w: %s", ErrRejected, to)
	}
	return v.apply(key, m)
}

// Collect moves amount from the contributor's account into the pool account.
func (v *Vault) Collect(_ context.Context, key string, into id.PoolID, from types.Identity, amount types.Money) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	m := movement{from: string(from), to: PoolAccount(into), amount: amount}
	if done, err := v.replayed(key, m); done || err != nil {
		return err
	}
	return v.apply(key, m)
}

// Applied reports whether a movement with key has completed.
func (v *Vault) Applied(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.applied[key]
	return ok
}

func (v *Vault) replayed(key string, m movement) (bool, error) {
	if key == "" {
		return false, nil
	}
	prev, ok := v.applied[key]
	if !ok {
		return false, nil
	}
	if prev != m {
		return true, fmt.Errorf("%w: %s", ErrKeyReused, key)
	}
	return true, nil
}

func (v *Vault) apply(key string, m movement) error {
	if err := v.move(m.from, m.to, m.amount); err != nil {
		return err
	}
	if key != "" {
		v.applied[key] = m
	}
	return nil
}

func (v *Vault) move(from, to string, amount types.Money) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	if amount.IsZero() {
		return nil
	}
	src := v.balances[from]
	if !src.Compatible(amount) {
		return fmt.Errorf("bank: %s holds %s, cannot move %s", from, src.Currency, amount.Currency)
	}
	if src.Amount < amount.Amount {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, from, src, amount)
	}
	rest, err := src.CheckedSubtract(amount)
	if err != nil {
		return err
	}
	dst := v.balances[to]
	sum, err := dst.CheckedAdd(amount)
	if err != nil {
		return fmt.Errorf("bank: credit %s: %w", to, err)
	}
	v.balances[from] = rest
	v.balances[to] = sum
	return nil
}

func (v *Vault) credit(account string, amount types.Money) error {
	sum, err := v.balances[account].CheckedAdd(amount)
	if err != nil {
		return fmt.Errorf("bank: credit %s: %w", account, err)
	}
	v.balances[account] = sum
	return nil
}
