// File: protocol/combinator.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Small suspendable parser combinators. A parser either yields a value,
// suspends with errNeedMore, or rejects with *api.ProtocolError. errNeedMore
// always propagates unchanged so the whole composition suspends without
// consuming anything.

package protocol

import "github.com/momentics/actorws/api"

type parser[T any] func(c *Cursor) (T, error)

// invalid rejects the input with a ProtocolError.
func invalid(reason string) error {
	return &api.ProtocolError{Reason: reason}
}

// pmap transforms a parser's result.
func pmap[A, B any](p parser[A], f func(A) B) parser[B] {
	return func(c *Cursor) (B, error) {
		a, err := p(c)
		if err != nil {
			var zero B
			return zero, err
		}
		return f(a), nil
	}
}

// pbind sequences two parsers where the second depends on the first's value.
func pbind[A, B any](p parser[A], f func(A) parser[B]) parser[B] {
	return func(c *Cursor) (B, error) {
		a, err := p(c)
		if err != nil {
			var zero B
			return zero, err
		}
		return f(a)(c)
	}
}

// pseq runs two parsers in order and combines their results.
func pseq[A, B, T any](pa parser[A], pb parser[B], f func(A, B) T) parser[T] {
	return pbind(pa, func(a A) parser[T] {
		return pmap(pb, func(b B) T { return f(a, b) })
	})
}

// palt tries alternatives in order from the same start position. A rejection
// backtracks and tries the next; suspension suspends the whole alternation,
// since a longer prefix could still satisfy the rejected branch's sibling.
func palt[T any](ps ...parser[T]) parser[T] {
	return func(c *Cursor) (T, error) {
		start := c.Pos()
		var zero T
		var lastErr error
		for _, p := range ps {
			v, err := p(c)
			if err == nil {
				return v, nil
			}
			if err == errNeedMore {
				return zero, err
			}
			c.Rewind(start)
			lastErr = err
		}
		return zero, lastErr
	}
}

// pguard rejects values that fail the predicate.
func pguard[T any](p parser[T], ok func(T) bool, reason string) parser[T] {
	return func(c *Cursor) (T, error) {
		v, err := p(c)
		if err != nil {
			return v, err
		}
		if !ok(v) {
			var zero T
			return zero, invalid(reason)
		}
		return v, nil
	}
}

// pure yields a constant without consuming input.
func pure[T any](v T) parser[T] {
	return func(*Cursor) (T, error) { return v, nil }
}

// Primitive parsers over the cursor.

func pu8() parser[byte] {
	return func(c *Cursor) (byte, error) { return c.u8() }
}

func pu16be() parser[uint16] {
	return func(c *Cursor) (uint16, error) { return c.u16be() }
}

func pu64be() parser[uint64] {
	return func(c *Cursor) (uint64, error) { return c.u64be() }
}

func ptake(n int) parser[[]byte] {
	return func(c *Cursor) ([]byte, error) { return c.take(n) }
}

func pline() parser[[]byte] {
	return func(c *Cursor) ([]byte, error) { return c.line() }
}
