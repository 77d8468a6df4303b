package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	apperrors "reservo/pkg/errors"
	"reservo/pkg/logger"

	"go.mongodb.org/mongo-driver/mongo"
)

// codeIllegalOperation is returned by standalone servers for transactions.
const codeIllegalOperation = 20

type TransactionFunc func(ctx mongo.SessionContext) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client     *mongo.Client
	log        *logger.Logger
	standalone atomic.Bool
}

func NewTransactionManager(client *mongo.Client, log *logger.Logger) TransactionManager {
	return &mongoTransactionManager{client: client, log: log}
}

// ExecuteTransaction runs fn inside a session transaction. AppErrors raised
// by fn abort the transaction and are returned unwrapped. Against a
// standalone server, where transactions are unsupported, fn runs in a plain
// session and relies on single-document atomicity.
func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	if m.standalone.Load() {
		return wrapTxError(mongo.WithSession(ctx, session, func(sc mongo.SessionContext) error {
			return fn(sc)
		}))
	}

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if isTransactionUnsupported(err) {
		m.standalone.Store(true)
		m.log.Warn("MongoDB does not support transactions, running without them")
		return m.ExecuteTransaction(ctx, fn)
	}
	return wrapTxError(err)
}

func wrapTxError(err error) error {
	if err == nil || apperrors.IsAppError(err) {
		return err
	}
	return fmt.Errorf("transaction failed: %w", err)
}

func isTransactionUnsupported(err error) bool {
	var cmdErr mongo.CommandError
	return errors.As(err, &cmdErr) && cmdErr.Code == codeIllegalOperation
}
