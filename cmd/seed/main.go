package main

import (
	"context"
	"crypto/md5"
	"database/sql"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/hoyun5295-ctrl/targetup/internal/config"
	"github.com/hoyun5295-ctrl/targetup/internal/models"
	"github.com/hoyun5295-ctrl/targetup/internal/repository"
)

// ANSI color codes for terminal output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// Command-line flags
var (
	customersCount = flag.Int("customers", 10000, "Number of customers to create")
	clearData      = flag.Bool("clear", false, "Clear existing customers and purchases before inserting")
	randomSeed     = flag.Int64("seed", 42, "Random seed for reproducible data")
	showHelp       = flag.Bool("help", false, "Show usage information")
)

const batchSize = 1000

func main() {
	flag.Parse()

	if *showHelp {
		printUsage()
		os.Exit(0)
	}

	// Load .env file (ignore error if not present)
	_ = godotenv.Load()

	printInfo("=== TargetUp Database Seeder ===\n")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(fmt.Sprintf("Failed to load configuration: %v", err))
		os.Exit(1)
	}

	// Connect to database
	printInfo("Connecting to database...")
	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		printError(fmt.Sprintf("Failed to open database connection: %v", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		printError(fmt.Sprintf("Failed to ping database: %v", err))
		os.Exit(1)
	}
	printSuccess("✓ Connected to database\n")

	ctx := context.Background()
	customerRepo := repository.NewCustomerRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)

	if *clearData {
		printWarning("Clearing existing customers and purchases...")
		if err := purchaseRepo.DeleteAll(ctx); err != nil {
			printError(fmt.Sprintf("Failed to clear purchases: %v", err))
			os.Exit(1)
		}
		if err := customerRepo.DeleteAll(ctx); err != nil {
			printError(fmt.Sprintf("Failed to clear customers: %v", err))
			os.Exit(1)
		}
		printSuccess("✓ Cleared\n")
	}

	rng := rand.New(rand.NewSource(*randomSeed))
	today := time.Now()

	printInfo(fmt.Sprintf("Generating %d customers...", *customersCount))
	customers := generateCustomers(rng, today, *customersCount)
	for i := 0; i < len(customers); i += batchSize {
		end := i + batchSize
		if end > len(customers) {
			end = len(customers)
		}
		if err := customerRepo.CreateBatch(ctx, customers[i:end]); err != nil {
			printError(fmt.Sprintf("Failed to insert customers: %v", err))
			os.Exit(1)
		}
	}
	printSuccess(fmt.Sprintf("✓ Created %d customers\n", len(customers)))

	printInfo("Generating purchases...")
	purchases := generatePurchases(rng, today, customers)
	for i := 0; i < len(purchases); i += batchSize {
		end := i + batchSize
		if end > len(purchases) {
			end = len(purchases)
		}
		if err := purchaseRepo.CreateBatch(ctx, purchases[i:end]); err != nil {
			printError(fmt.Sprintf("Failed to insert purchases: %v", err))
			os.Exit(1)
		}
	}
	printSuccess(fmt.Sprintf("✓ Created %d purchases\n", len(purchases)))

	printInfo("✨ Seeding completed successfully!")
}

// generateCustomers builds the synthetic population. Distributions skew
// female, 20s-30s and metropolitan, matching the cosmetics customer base.
func generateCustomers(rng *rand.Rand, today time.Time, n int) []models.Customer {
	regionWeights := []float64{
		0.25, 0.25, 0.08, 0.08, 0.05, 0.04, 0.04, 0.03, 0.01,
		0.03, 0.02, 0.02, 0.02, 0.02, 0.02, 0.02, 0.02,
	}
	skinWeights := []float64{0.25, 0.25, 0.25, 0.15, 0.10}
	gradeWeights := []float64{0.05, 0.15, 0.25, 0.30, 0.25}

	birthYears, birthWeights := birthYearDistribution(today.Year())

	customers := make([]models.Customer, 0, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("C%07d", i)

		gender := models.GenderFemale
		if rng.Float64() >= 0.7 {
			gender = models.GenderMale
		}

		joinedDaysAgo := rng.Intn(365 * 5)
		joinedAt := today.AddDate(0, 0, -joinedDaysAgo)

		// 5% never ordered; the rest ordered some time after joining
		var lastOrderAt *time.Time
		if rng.Float64() >= 0.05 {
			orderDaysAgo := 0
			if joinedDaysAgo > 0 {
				orderDaysAgo = rng.Intn(joinedDaysAgo)
			}
			t := today.AddDate(0, 0, -orderDaysAgo)
			lastOrderAt = &t
		}

		sum := md5.Sum([]byte(id))
		customers = append(customers, models.Customer{
			ID:          id,
			Name:        fmt.Sprintf("고객%x", sum[:3]),
			Gender:      gender,
			BirthYear:   weightedChoiceInt(rng, birthYears, birthWeights),
			Region:      weightedChoice(rng, models.Regions, regionWeights),
			SkinType:    weightedChoice(rng, models.SkinTypes, skinWeights),
			Grade:       weightedChoice(rng, models.Grades, gradeWeights),
			JoinedAt:    joinedAt,
			LastOrderAt: lastOrderAt,
		})
	}
	return customers
}

// generatePurchases builds each customer's purchase history after their
// join date. Product-line categories dominate; concern categories show up
// in about one purchase in five.
func generatePurchases(rng *rand.Rand, today time.Time, customers []models.Customer) []models.Purchase {
	products := productsByCategory()

	purchases := make([]models.Purchase, 0, len(customers)*4)
	purchaseID := 1

	for _, c := range customers {
		daysSinceJoined := int(today.Sub(c.JoinedAt).Hours() / 24)
		if daysSinceJoined <= 0 {
			daysSinceJoined = 1
		}

		// Geometric purchase count, mean ~4, clipped to 1..20
		count := geometric(rng, 0.25)
		if count > 20 {
			count = 20
		}

		for j := 0; j < count; j++ {
			var category string
			if rng.Float64() < 0.8 {
				category = models.Stages[rng.Intn(len(models.Stages))]
			} else {
				category = models.Concerns[rng.Intn(len(models.Concerns))]
			}

			names := products[category]
			product := names[rng.Intn(len(names))]

			purchases = append(purchases, models.Purchase{
				ID:          fmt.Sprintf("P%09d", purchaseID),
				CustomerID:  c.ID,
				PurchasedAt: today.AddDate(0, 0, -rng.Intn(daysSinceJoined+1)),
				Category:    category,
				Product:     product,
				Amount:      int(math.Exp(rng.NormFloat64()*0.5 + 9.5)),
			})
			purchaseID++
		}
	}
	return purchases
}

// birthYearDistribution weights 1960-2006 so 20s > 30s > 40s > older
func birthYearDistribution(currentYear int) ([]int, []float64) {
	years := make([]int, 0, 47)
	weights := make([]float64, 0, 47)
	for y := 1960; y <= 2006; y++ {
		age := currentYear - y
		var w float64
		switch {
		case age >= 20 && age < 30:
			w = 3.0
		case age >= 30 && age < 40:
			w = 2.5
		case age >= 40 && age < 50:
			w = 1.5
		case age >= 50 && age < 60:
			w = 1.0
		default:
			w = 0.5
		}
		years = append(years, y)
		weights = append(weights, w)
	}
	return years, weights
}

func productsByCategory() map[string][]string {
	return map[string][]string{
		"클렌징":   {"모공클렌저", "버블폼", "오일클렌저", "클렌징워터", "저자극폼"},
		"스킨":    {"수분토너", "진정토너", "각질케어토너", "미스트토너", "에센스토너"},
		"에센스":   {"비타민세럼", "히알루론에센스", "나이아신에센스", "펩타이드세럼", "레티놀에센스"},
		"로션/크림": {"수분크림", "영양크림", "장벽크림", "리페어크림", "산뜻크림"},
		"눈가케어":  {"아이크림", "아이세럼", "아이패치", "아이롤러", "아이밤"},
		"집중케어":  {"앰플", "부스터", "오일", "캡슐", "집중세럼"},
		"헤어/바디": {"바디로션", "핸드크림", "헤어에센스", "두피케어", "바디오일"},
		"메이크업":  {"쿠션", "BB크림", "프라이머", "파운데이션", "톤업크림"},
		"선케어":   {"선크림", "선스틱", "선쿠션", "선스프레이", "선에센스"},
		"립케어":   {"립밤", "립오일", "립마스크", "립세럼", "립트리트먼트"},
		"마스크팩":  {"시트마스크", "클레이팩", "워시오프팩", "슬리핑팩", "앰플마스크"},
		"건강케어":  {"이너뷰티", "콜라겐", "비타민", "프로바이오틱스", "오메가3"},
		"수분/보습": {"보습세럼", "수분앰플", "보습크림", "수분팩", "보습미스트"},
		"미백/잡티": {"미백세럼", "브라이트닝크림", "비타민C앰플", "톤업크림", "잡티세럼"},
		"트러블/진정": {"시카크림", "진정세럼", "트러블패치", "티트리젤", "진정토너"},
		"주름/탄력": {"주름세럼", "탄력크림", "콜라겐앰플", "리프팅크림", "펩타이드크림"},
		"모공/피지": {"모공세럼", "피지케어토너", "BHA세럼", "모공패드", "피지조절크림"},
		"남성":    {"남성올인원", "남성쉐이빙젤", "남성토너", "남성선크림", "남성클렌저"},
		"맘/임산부": {"임산부크림", "튼살크림", "저자극로션", "순한클렌저", "무향크림"},
	}
}

// weightedChoice picks one value; weights must sum to ~1
func weightedChoice(rng *rand.Rand, values []string, weights []float64) string {
	r := rng.Float64()
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return values[i]
		}
	}
	return values[len(values)-1]
}

func weightedChoiceInt(rng *rand.Rand, values []int, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return values[i]
		}
	}
	return values[len(values)-1]
}

// geometric draws the number of trials until the first success
func geometric(rng *rand.Rand, p float64) int {
	n := 1
	for rng.Float64() >= p {
		n++
	}
	return n
}

func printUsage() {
	fmt.Println("Usage: seed [flags]")
	fmt.Println()
	flag.PrintDefaults()
}

// Helper functions for colored output

func printSuccess(msg string) {
	fmt.Printf("%s%s%s\n", colorGreen, msg, colorReset)
}

func printError(msg string) {
	fmt.Fprintf(os.Stderr, "%s%s%s\n", colorRed, msg, colorReset)
}

func printWarning(msg string) {
	fmt.Printf("%s%s%s\n", colorYellow, msg, colorReset)
}

func printInfo(msg string) {
	fmt.Printf("%s%s%s\n", colorCyan, msg, colorReset)
}
