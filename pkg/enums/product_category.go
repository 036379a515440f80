package enums

// ProductCategory enumerates the listing categories farmers can publish under.
type ProductCategory string

const (
	CategoryVegetables ProductCategory = "Vegetables"
	CategoryFruits     ProductCategory = "Fruits"
	CategoryCrops      ProductCategory = "Crops"
)

func (c ProductCategory) IsValid() bool {
	switch c {
	case CategoryVegetables, CategoryFruits, CategoryCrops:
		return true
	}
	return false
}

func (c ProductCategory) String() string {
	return string(c)
}
