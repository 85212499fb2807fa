package constants

// Register layout. Rows and columns are 1-based, matching excelize
// coordinates.
const (
	// HeaderRow holds the column labels; data starts on the next row.
	HeaderRow = 5

	// TPNHeader is the label of the identifier column on the header row.
	TPNHeader = "TPN No."

	// FirstOutputCol and LastOutputCol bound the extraction output columns,
	// "L" through "AB". Everything left of FirstOutputCol belongs to the
	// register and is never written.
	FirstOutputCol = 12
	LastOutputCol  = 28
)

// OutputColumnCount is the widest extraction schema the register can hold.
const OutputColumnCount = LastOutputCol - FirstOutputCol + 1
