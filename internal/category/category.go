package category

// Category is a label in use by at least one of the caller's transactions.
// Categories are free text on the transaction; there is no separate table.
type Category struct {
	Name  string `db:"name"`
	Count int    `db:"count"`
}

type CategoryResponse struct {
	Name  string `json:"name"`
	Count int    `json:"transaction_count"`
}

type CategoriesResponse struct {
	Categories []CategoryResponse `json:"categories"`
}

func (c *Category) ToResponse() CategoryResponse {
	return CategoryResponse(*c)
}
