package model

// Cart belongs to exactly one user. It is created lazily and never deleted,
// only emptied.
type Cart struct {
	ID     int64
	UserID int64
	Lines  []CartLine
}

type CartLine struct {
	ProductID int64
	Quantity  int
}

func (c *Cart) IsEmpty() bool { return c == nil || len(c.Lines) == 0 }

// Product is the catalog view the checkout needs: the live price and stock.
type Product struct {
	ID    int64
	Name  string
	Price int64
	Stock int
}
