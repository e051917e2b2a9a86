package repomanager

import (
	"context"
	"database/sql"

	"github.com/evenfall/nightpost/internal/dbx"
	"github.com/evenfall/nightpost/internal/server/repositories/attachments"
	"github.com/evenfall/nightpost/internal/server/repositories/threads"
)

// RepositoryManager constructs repositories bound to a DBTX, so the same
// repository code runs against the pool or inside a service transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Threads(db dbx.DBTX) threads.Repository
	Attachments(db dbx.DBTX) attachments.Repository
}
