// Package gnucash reads GnuCash SQLite books into transaction tables and
// writes example books to try the dashboard with.
package gnucash

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"gnucashboard/internal/core"
	"gnucashboard/internal/log"
)

// GnuCash account types read by the dashboard.
const (
	AccountExpense = "EXPENSE"
	AccountIncome  = "INCOME"
	AccountRoot    = "ROOT"
)

var (
	ErrEmptyBook    = errors.New("book has no expense transactions")
	ErrBookNotFound = errors.New("book not found")
)

// post_date layouts: GnuCash 3 and later, then the older compact form.
var postDateLayouts = []string{"2006-01-02 15:04:05", "20060102150405"}

type ReaderOptions struct {
	MonthFormat core.MonthFormat
	Separator   string
	Logger      *log.Logger
}

// Reader flattens the splits of a book into expense and income tables.
type Reader struct {
	path   string
	format core.MonthFormat
	sep    string
	logger *log.Logger
}

func NewReader(path string, opts ReaderOptions) *Reader {
	if opts.MonthFormat == (core.MonthFormat{}) {
		opts.MonthFormat = core.MustMonthFormat(core.DefaultMonthPattern)
	}
	if opts.Separator == "" {
		opts.Separator = core.DefaultSeparator
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	return &Reader{
		path:   path,
		format: opts.MonthFormat,
		sep:    opts.Separator,
		logger: opts.Logger.WithComponent(log.ComponentGnuCash),
	}
}

func (r *Reader) Path() string { return r.path }

// Read loads the book. A book without expenses is ErrEmptyBook.
func (r *Reader) Read(ctx context.Context) (core.Tables, error) {
	if _, err := os.Stat(r.path); err != nil {
		if os.IsNotExist(err) {
			return core.Tables{}, fmt.Errorf("%w: %s", ErrBookNotFound, r.path)
		}
		return core.Tables{}, fmt.Errorf("stat book: %w", err)
	}

	db, err := sql.Open("sqlite", r.path)
	if err != nil {
		return core.Tables{}, fmt.Errorf("open book: %w", err)
	}
	defer db.Close()

	names, err := r.accountNames(ctx, db)
	if err != nil {
		return core.Tables{}, err
	}

	var tables core.Tables
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := r.splits(gctx, db, AccountExpense, names)
		tables.Expenses = t
		return err
	})
	g.Go(func() error {
		t, err := r.splits(gctx, db, AccountIncome, names)
		tables.Income = t
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Tables{}, err
	}
	if len(tables.Expenses) == 0 {
		return core.Tables{}, fmt.Errorf("%w: %s", ErrEmptyBook, r.path)
	}

	r.logger.Info("Book read",
		log.FieldBookPath, r.path,
		log.FieldExpenses, len(tables.Expenses),
		log.FieldIncome, len(tables.Income))
	return tables, nil
}

type account struct {
	name   string
	typ    string
	parent string
}

// accountNames maps account guids to their full names, the root account
// left out.
func (r *Reader) accountNames(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT guid, name, account_type, COALESCE(parent_guid, '') FROM accounts`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := map[string]account{}
	for rows.Next() {
		var guid string
		var a account
		if err := rows.Scan(&guid, &a.name, &a.typ, &a.parent); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts[guid] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	names := make(map[string]string, len(accounts))
	for guid := range accounts {
		var parts []string
		for cur, depth := guid, 0; cur != "" && depth <= len(accounts); depth++ {
			a, ok := accounts[cur]
			if !ok || a.typ == AccountRoot {
				break
			}
			parts = append(parts, a.name)
			cur = a.parent
		}
		for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
			parts[i], parts[j] = parts[j], parts[i]
		}
		names[guid] = strings.Join(parts, r.sep)
	}
	return names, nil
}

const splitsQuery = `
SELECT s.guid, s.account_guid, s.memo, s.value_num, s.value_denom,
       COALESCE(t.description, ''), COALESCE(t.post_date, ''), COALESCE(c.mnemonic, '')
FROM splits s
JOIN transactions t ON t.guid = s.tx_guid
JOIN accounts a ON a.guid = s.account_guid
LEFT JOIN commodities c ON c.guid = t.currency_guid
WHERE a.account_type = ?
ORDER BY t.post_date, t.guid, s.guid`

func (r *Reader) splits(ctx context.Context, db *sql.DB, accountType string, names map[string]string) (core.Table, error) {
	rows, err := db.QueryContext(ctx, splitsQuery, accountType)
	if err != nil {
		return nil, fmt.Errorf("query %s splits: %w", strings.ToLower(accountType), err)
	}
	defer rows.Close()

	var out core.Table
	for rows.Next() {
		var (
			guid, accountGUID, memo, description, postDate, mnemonic string
			num, denom                                               int64
		)
		if err := rows.Scan(&guid, &accountGUID, &memo, &num, &denom, &description, &postDate, &mnemonic); err != nil {
			return nil, fmt.Errorf("scan split: %w", err)
		}
		t, err := r.transaction(names[accountGUID], memo, description, postDate, mnemonic, num, denom)
		if err != nil {
			return nil, fmt.Errorf("split %s: %w", guid, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate splits: %w", err)
	}
	return out, nil
}

// transaction builds a row from one split. The split memo names the product
// and the transaction description the shop; without a memo the description
// is the product and there is no shop.
func (r *Reader) transaction(path, memo, description, postDate, mnemonic string, num, denom int64) (core.Transaction, error) {
	if denom == 0 {
		return core.Transaction{}, errors.New("zero value denominator")
	}
	date, err := ParsePostDate(postDate)
	if err != nil {
		return core.Transaction{}, err
	}

	product, shop := strings.TrimSpace(memo), strings.TrimSpace(description)
	if product == "" {
		product, shop = shop, ""
	}

	segments := strings.Split(path, r.sep)
	typ := ""
	if len(segments) > 1 {
		typ = segments[1]
	}

	t := core.Transaction{
		Date:         date,
		Price:        decimal.NewFromInt(num).Div(decimal.NewFromInt(denom)),
		Currency:     core.CurrencyCode(mnemonic),
		Product:      product,
		Shop:         shop,
		Category:     segments[len(segments)-1],
		FullCategory: path,
		Type:         typ,
		MonthYear:    r.format.Key(date),
	}
	return t, t.Validate()
}

// ParsePostDate reads a GnuCash post_date and keeps its calendar date.
func ParsePostDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range postDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid post date %q", s)
}
