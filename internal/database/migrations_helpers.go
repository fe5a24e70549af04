package database

import (
	"gorm.io/gorm"

	"github.com/mdnaeem95/halaltech/internal/models"
)

type starterPackage struct {
	name         string
	price        float64
	deliveryDays int
	revisions    int
	popular      bool
	features     []string
}

type starterService struct {
	name        string
	slug        string
	category    string
	description string
	basePrice   *float64
	features    []string
	packages    []starterPackage
}

func price(v float64) *float64 { return &v }

var starterCatalog = []starterService{
	{
		name:        "Website Development",
		slug:        "website-development",
		category:    "web",
		description: "Responsive marketing sites and web applications built to brief.",
		basePrice:   price(1500),
		features:    []string{"Responsive design", "CMS integration", "SEO basics"},
		packages: []starterPackage{
			{name: "Starter", price: 1500, deliveryDays: 14, revisions: 2, features: []string{"Up to 5 pages", "Contact form"}},
			{name: "Business", price: 3500, deliveryDays: 28, revisions: 3, popular: true, features: []string{"Up to 15 pages", "Blog", "Analytics"}},
			{name: "Commerce", price: 6500, deliveryDays: 42, revisions: 4, features: []string{"Online store", "Payment gateway", "Inventory"}},
		},
	},
	{
		name:        "Mobile App Development",
		slug:        "mobile-app-development",
		category:    "mobile",
		description: "Native and cross-platform mobile applications.",
		features:    []string{"iOS and Android", "Store submission", "Push notifications"},
	},
	{
		name:        "UI/UX Design",
		slug:        "ui-ux-design",
		category:    "design",
		description: "Research-led interface design and prototyping.",
		basePrice:   price(800),
		features:    []string{"Wireframes", "High fidelity mockups", "Clickable prototype"},
		packages: []starterPackage{
			{name: "Essential", price: 800, deliveryDays: 7, revisions: 2, features: []string{"Up to 5 screens"}},
			{name: "Complete", price: 2200, deliveryDays: 21, revisions: 4, popular: true, features: []string{"Up to 20 screens", "Design system"}},
		},
	},
	{
		name:        "Digital Marketing",
		slug:        "digital-marketing",
		category:    "marketing",
		description: "Search, social and content campaigns.",
		basePrice:   price(500),
		features:    []string{"Campaign setup", "Monthly reporting"},
		packages: []starterPackage{
			{name: "Monthly", price: 500, deliveryDays: 30, revisions: 1, features: []string{"Two channels", "Monthly report"}},
		},
	},
	{
		name:        "IT Consulting",
		slug:        "it-consulting",
		category:    "consulting",
		description: "Architecture reviews, cloud migration and technology planning.",
		features:    []string{"Discovery workshop", "Written recommendations"},
	},
}

func seedCatalog(tx *gorm.DB) error {
	for idx, item := range starterCatalog {
		svc := models.Service{
			Name:        item.name,
			Slug:        item.slug,
			Category:    item.category,
			Description: item.description,
			BasePrice:   item.basePrice,
			Features:    models.StringList(item.features),
			IsActive:    true,
			SortOrder:   idx,
		}
		if err := tx.Where(models.Service{Slug: item.slug}).Attrs(svc).FirstOrCreate(&svc).Error; err != nil {
			return err
		}

		for _, pkg := range item.packages {
			record := models.ServicePackage{
				ServiceID:    svc.ID,
				Name:         pkg.name,
				Price:        pkg.price,
				DeliveryDays: pkg.deliveryDays,
				Revisions:    pkg.revisions,
				IsPopular:    pkg.popular,
				IsActive:     true,
				Features:     models.StringList(pkg.features),
			}
			if err := tx.Where(models.ServicePackage{ServiceID: svc.ID, Name: pkg.name}).Attrs(record).FirstOrCreate(&record).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
