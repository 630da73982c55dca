package core

// ColumnNames are the display names of the transaction columns. Table sinks
// use them as headers and generated chart columns must not collide with them.
type ColumnNames struct {
	Date          string
	Price         string
	Currency      string
	Product       string
	Shop          string
	Category      string
	AllCategories string
	Type          string
	MonthYear     string
}

func DefaultColumnNames() ColumnNames {
	return ColumnNames{
		Date:          "Date",
		Price:         "Price",
		Currency:      "Currency",
		Product:       "Product",
		Shop:          "Shop",
		Category:      "Category",
		AllCategories: "ALL_CATEGORIES",
		Type:          "Type",
		MonthYear:     "MonthYear",
	}
}

// List returns every column name in table order.
func (c ColumnNames) List() []string {
	return []string{c.Date, c.Price, c.Currency, c.Product, c.Shop, c.Category, c.AllCategories, c.Type, c.MonthYear}
}
