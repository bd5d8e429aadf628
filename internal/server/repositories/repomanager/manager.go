package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/authcodes"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/notes"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either the pool or a running
// transaction, so services can compose several of them under dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	AuthCodes(db dbx.DBTX) authcodes.Repository
	Notes(db dbx.DBTX) notes.Repository
}
