// Package allocator assigns member IDs. Generation is a pure keyed hash over
// stable user attributes so retries and migrations reproduce the same ID;
// uniqueness is enforced by a bounded probe against the profile store.
package allocator

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"

	"enrolld/pkg/domain"
	dErrors "enrolld/pkg/domain-errors"
	"enrolld/pkg/email"
)

// maxProbes bounds the collision loop: counters 0..5.
const maxProbes = 6

// IDStore is the narrow store surface the allocator needs.
type IDStore interface {
	MemberIDExists(ctx context.Context, id domain.MemberID) (bool, error)
}

// Input carries the stable attributes a member ID is derived from.
type Input struct {
	Group       domain.MembershipGroup
	Source      domain.SourceChannel
	Email       string
	DateOfBirth string
	FirstName   string
	LastName    string
}

// Allocation is one generated ID together with the counter and salt that
// produced it, so callers can continue the collision sequence.
type Allocation struct {
	ID      domain.MemberID
	Counter int
	Salt    string
}

type Allocator struct {
	secret []byte
	store  IDStore
	logger *slog.Logger
}

type Option func(*Allocator)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Allocator) { a.logger = logger }
}

func New(secret []byte, store IDStore, opts ...Option) (*Allocator, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("allocation secret is required")
	}
	if store == nil {
		return nil, fmt.Errorf("id store is required")
	}
	a := &Allocator{
		secret: secret,
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Allocate derives a member ID from the input, counter and salt. Pure:
// identical inputs always yield the identical ID.
func (a *Allocator) Allocate(in Input, counter int, salt string) domain.MemberID {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(strings.Join([]string{
		in.Group.Code(),
		in.Source.Code(),
		email.Normalize(in.Email),
		in.DateOfBirth,
		in.FirstName,
		in.LastName,
		strconv.Itoa(counter),
		salt,
	}, "|")))

	tail := in.Group.TailLength()
	mod := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(tail)), nil)
	n := new(big.Int).SetBytes(mac.Sum(nil))
	n.Mod(n, mod)

	return domain.MemberID(fmt.Sprintf("M%s%s%0*d", in.Group.Code(), in.Source.Code(), tail, n))
}

// AllocateUnique probes counters 0..5 against the store and returns the first
// ID not already assigned. Counter 0 uses the empty salt so the first probe is
// reproducible from the input alone; later probes mix in a fresh random salt.
// All six taken is a hard allocation_exhausted error, never a silent skip of
// the uniqueness guarantee.
func (a *Allocator) AllocateUnique(ctx context.Context, in Input) (Allocation, error) {
	alloc := Allocation{Counter: 0, Salt: ""}
	for probe := 0; probe < maxProbes; probe++ {
		alloc.ID = a.Allocate(in, alloc.Counter, alloc.Salt)

		taken, err := a.store.MemberIDExists(ctx, alloc.ID)
		if err != nil {
			return Allocation{}, dErrors.Wrap(err, dErrors.CodeSignupFailed, "member id lookup failed")
		}
		if !taken {
			return alloc, nil
		}

		a.logger.WarnContext(ctx, "member id collision",
			"member_id", alloc.ID,
			"counter", alloc.Counter,
		)
		alloc = a.Next(in, alloc)
	}

	return Allocation{}, dErrors.Newf(dErrors.CodeAllocationExhausted,
		"no unique member id after %d attempts", maxProbes)
}

// Next continues the collision sequence: counter incremented, fresh salt.
// Pure apart from salt randomness.
func (a *Allocator) Next(in Input, prev Allocation) Allocation {
	next := Allocation{Counter: prev.Counter + 1, Salt: newSalt()}
	next.ID = a.Allocate(in, next.Counter, next.Salt)
	return next
}

func newSalt() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand read failures are not recoverable in any useful way.
		panic(fmt.Sprintf("read random salt: %v", err))
	}
	return hex.EncodeToString(b)
}
