package domain

// WeatherTag describes a condition a garment is suited for.
type WeatherTag int

const (
	TagVeryHot WeatherTag = iota
	TagHot
	TagWarm
	TagCool
	TagChilly
	TagCold
	TagVeryCold
	TagRainy
	TagSnowy
	TagWindy
	TagStrongUV
)

// ClothingCategory groups garments in a recommendation.
type ClothingCategory int

const (
	CategoryTop ClothingCategory = iota
	CategoryBottom
	CategoryOuterwear
	CategoryAccessory
)

// ClothingItem is one entry of the clothing catalogue.
type ClothingItem struct {
	Name     string
	Category ClothingCategory
	Tags     []WeatherTag
}

// Outerwear is only suggested below this feels-like temperature.
const outerwearBelow = 26

var clothingCatalogue = []ClothingItem{
	{"sleeveless top", CategoryTop, []WeatherTag{TagVeryHot}},
	{"short-sleeve T-shirt", CategoryTop, []WeatherTag{TagVeryHot, TagHot}},
	{"thin shirt", CategoryTop, []WeatherTag{TagHot, TagWarm}},
	{"long-sleeve T-shirt", CategoryTop, []WeatherTag{TagHot, TagWarm, TagCool}},
	{"sweatshirt", CategoryTop, []WeatherTag{TagWarm, TagCool, TagChilly}},
	{"knitwear", CategoryTop, []WeatherTag{TagCool, TagChilly, TagCold}},
	{"fleece hoodie", CategoryTop, []WeatherTag{TagChilly, TagCold}},
	{"thermal underwear", CategoryTop, []WeatherTag{TagCold, TagVeryCold}},

	{"shorts", CategoryBottom, []WeatherTag{TagVeryHot, TagHot}},
	{"cotton pants", CategoryBottom, []WeatherTag{TagHot, TagWarm, TagCool}},
	{"jeans", CategoryBottom, []WeatherTag{TagWarm, TagCool, TagChilly}},
	{"slacks", CategoryBottom, []WeatherTag{TagWarm, TagCool}},
	{"fleece-lined pants", CategoryBottom, []WeatherTag{TagCold, TagVeryCold}},

	{"thin cardigan", CategoryOuterwear, []WeatherTag{TagWarm}},
	{"jacket", CategoryOuterwear, []WeatherTag{TagCool, TagWindy}},
	{"field jacket", CategoryOuterwear, []WeatherTag{TagCool, TagChilly, TagWindy}},
	{"trench coat", CategoryOuterwear, []WeatherTag{TagCool, TagChilly}},
	{"coat", CategoryOuterwear, []WeatherTag{TagCold}},
	{"light padded jacket", CategoryOuterwear, []WeatherTag{TagCold, TagVeryCold}},
	{"heavy padded jacket", CategoryOuterwear, []WeatherTag{TagVeryCold, TagSnowy}},
	{"windbreaker", CategoryOuterwear, []WeatherTag{TagWarm, TagCool, TagWindy}},

	{"sandals", CategoryAccessory, []WeatherTag{TagVeryHot}},
	{"hat", CategoryAccessory, []WeatherTag{TagStrongUV}},
	{"scarf", CategoryAccessory, []WeatherTag{TagVeryCold}},
	{"gloves", CategoryAccessory, []WeatherTag{TagVeryCold}},
	{"umbrella", CategoryAccessory, []WeatherTag{TagRainy}},
	{"boots", CategoryAccessory, []WeatherTag{TagRainy, TagSnowy, TagCold}},
}

// temperatureTag buckets a feels-like temperature.
func temperatureTag(feelsLike int) WeatherTag {
	switch {
	case feelsLike >= 28:
		return TagVeryHot
	case feelsLike >= 23:
		return TagHot
	case feelsLike >= 17:
		return TagWarm
	case feelsLike >= 12:
		return TagCool
	case feelsLike >= 9:
		return TagChilly
	case feelsLike >= 5:
		return TagCold
	default:
		return TagVeryCold
	}
}

// RecommendClothing returns garment names suited to the conditions, ordered
// tops, bottoms, accessories, then outerwear.
func RecommendClothing(feelsLike int, rainy, windy bool) []string {
	tags := map[WeatherTag]bool{temperatureTag(feelsLike): true}
	if rainy {
		tags[TagRainy] = true
	}
	if windy {
		tags[TagWindy] = true
	}

	byCategory := make(map[ClothingCategory][]string)
	for _, item := range clothingCatalogue {
		for _, t := range item.Tags {
			if tags[t] {
				byCategory[item.Category] = append(byCategory[item.Category], item.Name)
				break
			}
		}
	}

	order := []ClothingCategory{CategoryTop, CategoryBottom, CategoryAccessory}
	if feelsLike < outerwearBelow {
		order = append(order, CategoryOuterwear)
	}

	var out []string
	seen := make(map[string]bool)
	for _, c := range order {
		for _, name := range byCategory[c] {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}
