package query

// Canonical attribute tags.
const (
	AttrNutFree     = "nut_free"
	AttrGlutenFree  = "gluten_free"
	AttrLowSodium   = "low_sodium"
	AttrLowSugar    = "low_sugar"
	AttrZeroSugar   = "zero_sugar"
	AttrHighProtein = "high_protein"
	AttrVegan       = "vegan"
	AttrVegetarian  = "vegetarian"
	AttrCaffeinated = "caffeinated"
	AttrKids        = "kids"
)

type synonymEntry struct {
	tag     string
	phrases []string
}

// attributeSynonyms maps canonical tags to the lowercase phrases that request
// them. Matching is by substring over the lowercased query.
var attributeSynonyms = []synonymEntry{
	{AttrNutFree, []string{"nut-free", "nut free", "no nuts", "peanut-free", "peanut free"}},
	{AttrGlutenFree, []string{"gluten-free", "gluten free"}},
	{AttrLowSodium, []string{"low sodium", "reduced sodium", "less sodium"}},
	{AttrLowSugar, []string{"low sugar", "no sugar", "reduced sugar", "less sugar"}},
	{AttrZeroSugar, []string{"zero sugar", "no sugar", "unsweetened"}},
	{AttrHighProtein, []string{"high protein", "protein"}},
	{AttrVegan, []string{"vegan", "plant-based", "plant based"}},
	{AttrVegetarian, []string{"vegetarian"}},
	{AttrCaffeinated, []string{"caffeinated", "with caffeine"}},
	{AttrKids, []string{"kids", "for kids", "kid"}},
}
