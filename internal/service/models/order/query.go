package order

// QueryOrdersModel filters order listings.
type QueryOrdersModel struct {
	Ids         []string
	CustomerIds []string
	RiderIds    []string
	Statuses    []Status

	// Unassigned limits results to orders without a rider, used for the
	// available-orders pool.
	Unassigned bool

	Limit  int
	Offset int
}
