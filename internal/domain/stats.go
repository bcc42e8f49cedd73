package domain

// Dimension selects which date a rollup groups by: the fill date for jars
// canned, the used date for jars used.
type Dimension string

const (
	DimensionCanned Dimension = "canned"
	DimensionUsed   Dimension = "used"
)

func (d Dimension) Valid() bool {
	return d == DimensionCanned || d == DimensionUsed
}

type JarStats struct {
	Total     int
	Available int
	Used      int
}

// ItemStock is the per item type stock level.
type ItemStock struct {
	ItemTypeID int64
	Name       string
	Category   string
	Total      int
	Used       int
	Available  int
}

// PeriodTotals counts jars canned and used within one year ("2024") or
// month ("2024-07").
type PeriodTotals struct {
	Period string
	Canned int
	Used   int
}

type SizeCount struct {
	JarSize string
	Count   int
}

// GroupTotals is one row of a category or item type breakdown with its jar
// size sub-breakdown.
type GroupTotals struct {
	Key        string
	ItemTypeID int64
	Count      int
	Sizes      []SizeCount
}

type LocationStock struct {
	Location  string
	Available int
}

// RecipeSource names where resolved batch recipe content came from.
type RecipeSource string

const (
	RecipeSourceNone     RecipeSource = "none"
	RecipeSourceBatch    RecipeSource = "batch"
	RecipeSourceRecipe   RecipeSource = "recipe"
	RecipeSourceItemType RecipeSource = "item_type"
)

// ResolvedRecipe is the recipe content shown for a batch. TextSource and
// ImageSource are reported separately because an override may supply only
// one of them.
type ResolvedRecipe struct {
	BatchID     string
	RecipeID    *int64
	RecipeName  string
	Text        string
	Image       string
	TextSource  RecipeSource
	ImageSource RecipeSource
}
