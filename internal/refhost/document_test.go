package refhost_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"thepipe/internal/refhost"
)

func TestTransactionCommitAndRollback(t *testing.T) {
	ctx := context.Background()
	doc := refhost.NewDocument()
	keep, err := doc.Add(refhost.NumberValue(1))
	require.NoError(t, err)

	tx, err := doc.Begin(ctx)
	require.NoError(t, err)
	added, err := tx.Add(refhost.TextDot("staged"))
	require.NoError(t, err)
	require.NoError(t, tx.Delete(keep))
	require.Equal(t, 1, doc.Len(), "changes stay invisible before commit")
	require.NoError(t, tx.Rollback())
	require.Equal(t, []string{keep}, doc.IDs())
	_, ok := doc.Get(added)
	require.False(t, ok)

	tx, err = doc.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Replace(keep, refhost.NumberValue(2)))
	added, err = tx.Add(refhost.TextDot("kept"))
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.ErrorIs(t, tx.Commit(), refhost.ErrTxDone)

	require.Equal(t, []string{keep, added}, doc.IDs())
	obj, _ := doc.Get(keep)
	require.Equal(t, refhost.NumberValue(2), obj)
}

func TestTransactionConflict(t *testing.T) {
	ctx := context.Background()
	doc := refhost.NewDocument()
	first, err := doc.Begin(ctx)
	require.NoError(t, err)
	second, err := doc.Begin(ctx)
	require.NoError(t, err)

	_, err = first.Add(refhost.NumberValue(1))
	require.NoError(t, err)
	_, err = second.Add(refhost.NumberValue(2))
	require.NoError(t, err)
	require.NoError(t, first.Commit())
	require.ErrorIs(t, second.Commit(), refhost.ErrConflict)
	require.Equal(t, []refhost.Object{refhost.NumberValue(1)}, doc.Objects())
}

func TestValidatorAndMissingIDs(t *testing.T) {
	doc := refhost.NewDocument(refhost.WithValidator(func(o refhost.Object) error {
		if o.ObjectType() == "text" {
			return errors.New("text not allowed")
		}
		return nil
	}))
	_, err := doc.Add(refhost.TextDot("nope"))
	require.ErrorContains(t, err, "text not allowed")

	tx, err := doc.Begin(context.Background())
	require.NoError(t, err)
	require.ErrorIs(t, tx.Delete("missing"), refhost.ErrNotFound)
	require.ErrorIs(t, tx.Replace("missing", refhost.NumberValue(1)), refhost.ErrNotFound)
	require.NoError(t, tx.Rollback())
	require.Zero(t, doc.Len())
}
