package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vedran77/campusnet/internal/database"
	"github.com/vedran77/campusnet/internal/domain"
	"github.com/vedran77/campusnet/internal/repository"
)

const uniqueViolation = "23505"

// Executor runs units of work in Postgres transactions. Scoped units tag the
// transaction with the caller identity via a transaction-local setting, so
// row-level security sees it and the pooled connection forgets it on
// commit or rollback.
type Executor struct {
	db         TxBeginner
	scopedRole string
	logger     *slog.Logger
}

// TxBeginner is satisfied by *pgxpool.Pool.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

func NewExecutor(db TxBeginner, scopedRole string, logger *slog.Logger) *Executor {
	return &Executor{db: db, scopedRole: scopedRole, logger: logger}
}

func (e *Executor) RunScoped(ctx context.Context, identity domain.Identity, work repository.UnitOfWork, opts ...repository.RunOption) error {
	if identity == "" {
		return domain.ErrMissingIdentity
	}
	return e.run(ctx, identity, work, repository.ApplyOptions(opts))
}

func (e *Executor) RunUnscoped(ctx context.Context, work repository.UnitOfWork, opts ...repository.RunOption) error {
	return e.run(ctx, "", work, repository.ApplyOptions(opts))
}

func (e *Executor) run(ctx context.Context, identity domain.Identity, work repository.UnitOfWork, o repository.RunOptions) error {
	txOpts := pgx.TxOptions{}
	if o.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
	}

	tx, err := e.db.BeginTx(ctx, txOpts)
	if err != nil {
		return domain.Persistence("begin unit of work", err)
	}
	// Runs on every exit path, panics included. Detached from ctx so a caller
	// that went away still releases the transaction. No-op after Commit.
	defer func() {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			e.logger.Warn("rollback failed", "identity", identity.String(), "error", rbErr)
		}
	}()

	if err := e.tag(ctx, tx, identity); err != nil {
		return domain.Persistence("tag unit of work", err)
	}

	if err := work(ctx, NewRepositories(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Persistence("commit unit of work", err)
	}
	return nil
}

func (e *Executor) tag(ctx context.Context, tx pgx.Tx, identity domain.Identity) error {
	if identity == "" {
		_, err := tx.Exec(ctx, `SELECT set_config('app.bypass_rls', 'on', true)`)
		return err
	}

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_identity', $1, true)`, identity.String()); err != nil {
		return err
	}
	if e.scopedRole != "" {
		_, err := tx.Exec(ctx, "SET LOCAL ROLE "+pgx.Identifier{e.scopedRole}.Sanitize())
		return err
	}
	return nil
}

// NewRepositories binds every repository to db, normally a transaction.
func NewRepositories(db database.DBTX) repository.Repositories {
	return repository.Repositories{
		Profiles:      NewProfileRepo(db),
		Connections:   NewConnectionRepo(db),
		Conversations: NewConversationRepo(db),
		Notifications: NewNotificationRepo(db),
		Feed:          NewFeedRepo(db),
	}
}

// translate maps driver errors onto repository sentinels.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repository.ErrDuplicate
	}
	return err
}
