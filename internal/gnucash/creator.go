package gnucash

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gnucashboard/internal/core"
	"gnucashboard/internal/log"
)

// CreatorOptions tune the example book. Probabilities are per day and per
// planned transaction.
type CreatorOptions struct {
	Currency    string
	Start, End  time.Time
	Seed        int64
	LowProba    float64
	MediumProba float64
	HighProba   float64
	ShopProba   float64
	Logger      *log.Logger
}

func DefaultCreatorOptions() CreatorOptions {
	return CreatorOptions{
		Currency:    "PLN",
		Start:       time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2019, 12, 31, 0, 0, 0, 0, time.UTC),
		Seed:        42,
		LowProba:    0.05,
		MediumProba: 0.3,
		HighProba:   0.6,
		ShopProba:   0.4,
	}
}

// CreateStats counts what a Creator wrote.
type CreateStats struct {
	Accounts     int
	Transactions int
	Splits       int
}

// Creator writes a reproducible example book: a household with two
// earners, fixed monthly bills and randomly drawn daily shopping.
type Creator struct {
	path   string
	opts   CreatorOptions
	rng    *rand.Rand
	guids  *rand.Rand
	logger *log.Logger
}

func NewCreator(path string, opts CreatorOptions) *Creator {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	return &Creator{
		path:   path,
		opts:   opts,
		rng:    rand.New(rand.NewSource(opts.Seed)),
		guids:  rand.New(rand.NewSource(opts.Seed ^ 0x5eed)),
		logger: opts.Logger.WithComponent(log.ComponentGnuCash),
	}
}

type accountSpec struct {
	key         string
	name        string
	typ         string
	parent      string
	placeholder bool
}

var exampleAccounts = []accountSpec{
	{"assets", "Assets", "ASSET", "", true},
	{"john", "John", "ASSET", "assets", false},
	{"susan", "Susan", "ASSET", "assets", false},
	{"family", "Family", "ASSET", "assets", false},

	{"income", "Income", "INCOME", "", true},
	{"john_income", "John's Income", "INCOME", "income", false},
	{"susan_income", "Susan's Income", "INCOME", "income", false},

	{"expenses", "Expenses", "EXPENSE", "", true},
	{"john_exp", "John's Expenses", "EXPENSE", "expenses", true},
	{"clothes_john", "Clothes", "EXPENSE", "john_exp", false},
	{"susan_exp", "Susan's Expenses", "EXPENSE", "expenses", true},
	{"clothes_susan", "Clothes", "EXPENSE", "susan_exp", false},
	{"family_exp", "Family", "EXPENSE", "expenses", true},
	{"grocery", "Grocery", "EXPENSE", "family_exp", true},
	{"bread", "Bread", "EXPENSE", "grocery", false},
	{"meat", "Meat", "EXPENSE", "grocery", false},
	{"eggs", "Eggs", "EXPENSE", "grocery", false},
	{"chips", "Chips", "EXPENSE", "grocery", false},
	{"fruits", "Fruits and Vegetables", "EXPENSE", "grocery", false},
	{"car", "Car", "EXPENSE", "family_exp", true},
	{"petrol", "Petrol", "EXPENSE", "car", false},
	{"flat", "Flat", "EXPENSE", "family_exp", true},
	{"rent", "Rent", "EXPENSE", "flat", false},
	{"water", "Water and Electricity", "EXPENSE", "flat", false},
	{"bathroom", "Bathroom", "EXPENSE", "family_exp", true},
	{"toilet", "Toilet", "EXPENSE", "bathroom", false},
	{"personal_john", "Personal - John", "EXPENSE", "bathroom", false},
	{"personal_susan", "Personal - Susan", "EXPENSE", "bathroom", false},
	{"other", "Other", "EXPENSE", "family_exp", false},
}

// planned is a transaction that may happen on a day. The money moves from
// the from account into the account it is planned for. A price range with
// low == high is a fixed price.
type planned struct {
	description string
	from        string
	low, high   float64
}

var examplePlans = map[string][]planned{
	"john":           {{"Salary", "john_income", 3000, 3000}},
	"susan":          {{"Salary", "susan_income", 3000, 3000}},
	"family":         {{"Transaction", "john", 500, 500}, {"Transaction", "susan", 500, 500}},
	"clothes_john":   {{"Clothes", "john", 100, 350}},
	"clothes_susan":  {{"Clothes", "john", 100, 350}},
	"bread":          {{"White Bread", "family", 1, 4}, {"Rye Bread", "family", 3, 6}, {"Butter", "family", 4, 7}},
	"meat":           {{"Chicken", "family", 9, 16}, {"Cow", "family", 15, 30}},
	"eggs":           {{"Eggs", "family", 8, 16}},
	"chips":          {{"Chips", "family", 5, 17}, {"Lollipops", "family", 1, 2}},
	"fruits":         {{"Apple", "family", 3, 5}, {"Banana", "family", 5, 7}, {"Tomato", "family", 2, 4}, {"Pear", "family", 3, 5}},
	"petrol":         {{"Petrol", "family", 50, 250}},
	"rent":           {{"Rent", "family", 2000, 2000}},
	"water":          {{"Water and Electricity", "family", 20, 150}},
	"toilet":         {{"Toilet Paper", "family", 5, 15}, {"Facial Tissues", "family", 2, 8}},
	"personal_john":  {{"Beard Balm", "john", 15, 50}},
	"personal_susan": {{"Shampoo", "susan", 10, 15}, {"Face Cleanser", "susan", 10, 13}},
	"other":          {{"Other", "family", 1, 100}},
}

// Fixed day transactions happen every month on the given day.
var exampleFixed = []struct {
	day      int
	accounts []string
}{
	{20, []string{"rent", "water"}},
	{25, []string{"john", "susan"}},
	{26, []string{"family"}},
}

var (
	lowProbaAccounts    = []string{"clothes_john", "clothes_susan", "petrol", "toilet", "personal_john", "personal_susan"}
	mediumProbaAccounts = []string{"meat", "chips", "other"}
	highProbaAccounts   = []string{"bread", "eggs", "fruits"}
)

// Groceries may be bought together in one of the shops.
var exampleShops = []string{"Grocery Shop #1", "Grocery Shop #2"}

type split struct {
	account string
	memo    string
	value   decimal.Decimal
}

// Create writes the book, replacing any file at the path.
func (c *Creator) Create(ctx context.Context) (CreateStats, error) {
	var stats CreateStats
	if c.opts.End.Before(c.opts.Start) {
		return stats, fmt.Errorf("example period ends %s before it starts %s",
			c.opts.End.Format(time.DateOnly), c.opts.Start.Format(time.DateOnly))
	}
	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return stats, fmt.Errorf("create book directory: %w", err)
		}
	}
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return stats, fmt.Errorf("remove old book: %w", err)
	}
	if err := CreateSchema(c.path); err != nil {
		return stats, err
	}

	db, err := sql.Open("sqlite", c.path)
	if err != nil {
		return stats, fmt.Errorf("open book: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	w := &bookWriter{ctx: ctx, tx: tx, guid: c.guid, accounts: map[string]string{}, stats: &stats}
	if err := w.book(core.CurrencyCode(c.opts.Currency)); err != nil {
		return stats, err
	}
	if err := c.transactions(w); err != nil {
		return stats, err
	}
	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("commit: %w", err)
	}

	c.logger.Info("Example book created",
		log.FieldBookPath, c.path,
		"accounts", stats.Accounts,
		"transactions", stats.Transactions,
		"splits", stats.Splits)
	return stats, nil
}

// transactions walks every day of the period. Fixed transactions come
// first, then each probability group is drawn; the high probability group
// may instead be bought in a shop as one split transaction.
func (c *Creator) transactions(w *bookWriter) error {
	groups := []struct {
		accounts []string
		proba    float64
		shop     bool
	}{
		{lowProbaAccounts, c.opts.LowProba, false},
		{mediumProbaAccounts, c.opts.MediumProba, false},
		{highProbaAccounts, c.opts.HighProba, true},
	}

	for day := c.opts.Start; !day.After(c.opts.End); day = day.AddDate(0, 0, 1) {
		for _, fixed := range exampleFixed {
			if fixed.day != day.Day() {
				continue
			}
			for _, to := range fixed.accounts {
				for _, p := range examplePlans[to] {
					if err := c.single(w, day, to, p); err != nil {
						return err
					}
				}
			}
		}

		for _, g := range groups {
			if g.shop && c.rng.Float64() <= c.opts.ShopProba {
				shop := exampleShops[c.rng.Intn(len(exampleShops))]
				var splits []split
				for _, to := range g.accounts {
					for _, p := range examplePlans[to] {
						if c.rng.Float64() <= g.proba {
							price := c.price(p)
							splits = append(splits,
								split{account: to, memo: p.description, value: price},
								split{account: p.from, value: price.Neg()})
						}
					}
				}
				if len(splits) > 0 {
					if err := w.transaction(day, shop, splits); err != nil {
						return err
					}
				}
				continue
			}
			for _, to := range g.accounts {
				for _, p := range examplePlans[to] {
					if c.rng.Float64() <= g.proba {
						if err := c.single(w, day, to, p); err != nil {
							return err
						}
					}
				}
			}
		}
	}
	return nil
}

func (c *Creator) single(w *bookWriter, day time.Time, to string, p planned) error {
	price := c.price(p)
	return w.transaction(day, p.description, []split{
		{account: p.from, value: price.Neg()},
		{account: to, value: price},
	})
}

// price draws from the plan's range rounded to cents.
func (c *Creator) price(p planned) decimal.Decimal {
	v := p.low
	if p.high > p.low {
		v = p.low + c.rng.Float64()*(p.high-p.low)
	}
	return decimal.NewFromFloat(v).Round(2)
}

// guid returns a GnuCash style 32 hex digit identifier drawn from the seeded
// source so that the same seed writes the same book.
func (c *Creator) guid() string {
	id, err := uuid.NewRandomFromReader(c.guids)
	if err != nil {
		id = uuid.New()
	}
	return strings.ReplaceAll(id.String(), "-", "")
}

// bookWriter inserts GnuCash rows within one database transaction.
type bookWriter struct {
	ctx      context.Context
	tx       *sql.Tx
	guid     func() string
	currency string
	accounts map[string]string
	stats    *CreateStats
}

func (w *bookWriter) book(currency string) error {
	w.currency = w.guid()
	if _, err := w.tx.ExecContext(w.ctx,
		`INSERT INTO commodities (guid, namespace, mnemonic, fullname, cusip, fraction, quote_flag, quote_source, quote_tz)
		 VALUES (?, 'CURRENCY', ?, ?, '', 100, 1, 'currency', '')`,
		w.currency, currency, currency); err != nil {
		return fmt.Errorf("insert commodity: %w", err)
	}

	root, template := w.guid(), w.guid()
	if err := w.account(root, "Root Account", AccountRoot, "", false); err != nil {
		return err
	}
	if err := w.account(template, "Template Root", AccountRoot, "", false); err != nil {
		return err
	}
	if _, err := w.tx.ExecContext(w.ctx,
		`INSERT INTO books (guid, root_account_guid, root_template_guid) VALUES (?, ?, ?)`,
		w.guid(), root, template); err != nil {
		return fmt.Errorf("insert book: %w", err)
	}

	for _, a := range exampleAccounts {
		parent := root
		if a.parent != "" {
			parent = w.accounts[a.parent]
		}
		guid := w.guid()
		if err := w.account(guid, a.name, a.typ, parent, a.placeholder); err != nil {
			return err
		}
		w.accounts[a.key] = guid
		w.stats.Accounts++
	}
	return nil
}

func (w *bookWriter) account(guid, name, typ, parent string, placeholder bool) error {
	var parentGUID any
	if parent != "" {
		parentGUID = parent
	}
	_, err := w.tx.ExecContext(w.ctx,
		`INSERT INTO accounts (guid, name, account_type, commodity_guid, commodity_scu, non_std_scu, parent_guid, code, description, hidden, placeholder)
		 VALUES (?, ?, ?, ?, 100, 0, ?, '', '', 0, ?)`,
		guid, name, typ, w.currency, parentGUID, placeholder)
	if err != nil {
		return fmt.Errorf("insert account %s: %w", name, err)
	}
	return nil
}

func (w *bookWriter) transaction(day time.Time, description string, splits []split) error {
	txGUID := w.guid()
	// GnuCash stores date-only postings at 10:59 UTC.
	postDate := time.Date(day.Year(), day.Month(), day.Day(), 10, 59, 0, 0, time.UTC).Format(postDateLayouts[0])
	if _, err := w.tx.ExecContext(w.ctx,
		`INSERT INTO transactions (guid, currency_guid, num, post_date, enter_date, description) VALUES (?, ?, '', ?, ?, ?)`,
		txGUID, w.currency, postDate, postDate, description); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	for _, s := range splits {
		cents := s.value.Shift(2).IntPart()
		if _, err := w.tx.ExecContext(w.ctx,
			`INSERT INTO splits (guid, tx_guid, account_guid, memo, action, reconcile_state, reconcile_date, value_num, value_denom, quantity_num, quantity_denom, lot_guid)
			 VALUES (?, ?, ?, ?, '', 'n', NULL, ?, 100, ?, 100, NULL)`,
			w.guid(), txGUID, w.accounts[s.account], s.memo, cents, cents); err != nil {
			return fmt.Errorf("insert split: %w", err)
		}
		w.stats.Splits++
	}
	w.stats.Transactions++
	return nil
}
