package models

// Fixed taxonomies the targeting filter validates against. Stages are the
// product-line categories, concerns the skin-concern categories; both are
// valid purchase categories.

// Stages are the product-line purchase categories
var Stages = []string{
	"클렌징", "스킨", "에센스", "로션/크림", "눈가케어",
	"집중케어", "헤어/바디", "메이크업", "선케어", "립케어",
	"마스크팩", "건강케어",
}

// Concerns are the skin-concern purchase categories
var Concerns = []string{
	"수분/보습", "미백/잡티", "트러블/진정", "주름/탄력",
	"모공/피지", "남성", "맘/임산부",
}

// Categories is the full purchase-category taxonomy (stages + concerns)
var Categories = append(append([]string{}, Stages...), Concerns...)

// Regions are the valid customer regions
var Regions = []string{
	"서울", "경기", "인천", "부산", "대구", "광주", "대전", "울산", "세종",
	"강원", "충북", "충남", "전북", "전남", "경북", "경남", "제주",
}

// SkinTypes are the valid customer skin types
var SkinTypes = []string{"건성", "지성", "복합성", "민감성", "중성"}

// Grades are the valid customer grades
var Grades = []string{"VIP", "GOLD", "SILVER", "BRONZE", "NORMAL"}

// SkinConcerns is the subset of concerns the recommender personalizes on
var SkinConcerns = []string{"수분/보습", "미백/잡티", "트러블/진정", "주름/탄력", "모공/피지"}

// IsValidCategory reports whether category is in the fixed taxonomy
func IsValidCategory(category string) bool {
	return contains(Categories, category)
}

// IsValidRegion reports whether region is in the fixed taxonomy
func IsValidRegion(region string) bool {
	return contains(Regions, region)
}

// IsValidSkinType reports whether skinType is in the fixed taxonomy
func IsValidSkinType(skinType string) bool {
	return contains(SkinTypes, skinType)
}

// IsValidGrade reports whether grade is in the fixed taxonomy
func IsValidGrade(grade string) bool {
	return contains(Grades, grade)
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
