// Package analytics считает производные показатели продавца по журналу продаж
// и расхода материалов. Все функции чистые: результат зависит только от входа.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"vendorbid/models"
)

const (
	topProductsLimit   = 5
	lowMarginThreshold = 15.0
	lowMarginLimit     = 3
	recentWindow       = 30 * 24 * time.Hour
	restockShare       = 0.2
	trendThreshold     = 0.10
)

var hundred = decimal.NewFromInt(100)

// Dashboard это сводка для GET /api/analytics/dashboard
type Dashboard struct {
	TotalRevenue       decimal.Decimal             `json:"totalRevenue"`
	TotalProfit        decimal.Decimal             `json:"totalProfit"`
	TotalSales         int                         `json:"totalSales"`
	ProfitMargin       float64                     `json:"profitMargin"`
	TopProducts        []models.ProductSales       `json:"topProducts"`
	MaterialEfficiency []models.MaterialEfficiency `json:"materialEfficiency"`
	Recommendations    []models.Recommendation     `json:"recommendations"`
}

type productStats struct {
	name     string
	revenue  decimal.Decimal
	cost     decimal.Decimal
	quantity float64
}

// WithProfit проставляет profit = revenue - cost каждой записи
func WithProfit(sales []models.Sale) []models.Sale {
	out := make([]models.Sale, len(sales))
	for i, s := range sales {
		s.Profit = s.Revenue.Sub(s.Cost)
		out[i] = s
	}
	return out
}

// groupByProduct суммирует продажи по названию товара в порядке первого появления
func groupByProduct(sales []models.Sale) []*productStats {
	var (
		order []*productStats
		index = map[string]*productStats{}
	)
	for _, s := range sales {
		st, ok := index[s.ProductName]
		if !ok {
			st = &productStats{name: s.ProductName}
			index[s.ProductName] = st
			order = append(order, st)
		}
		st.revenue = st.revenue.Add(s.Revenue)
		st.cost = st.cost.Add(s.Cost)
		st.quantity += s.Quantity
	}
	return order
}

// TopSelling возвращает до пяти товаров с наибольшей выручкой
func TopSelling(sales []models.Sale) []models.ProductSales {
	stats := groupByProduct(sales)
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].revenue.GreaterThan(stats[j].revenue)
	})
	if len(stats) > topProductsLimit {
		stats = stats[:topProductsLimit]
	}

	top := make([]models.ProductSales, 0, len(stats))
	for _, st := range stats {
		top = append(top, models.ProductSales{
			ProductName:   st.name,
			TotalRevenue:  st.revenue,
			TotalQuantity: st.quantity,
		})
	}
	return top
}

// Margin считает (revenue - cost) / revenue * 100; при нулевой выручке маржа 0
func Margin(revenue, cost decimal.Decimal) float64 {
	if revenue.IsZero() {
		return 0
	}
	return revenue.Sub(cost).Div(revenue).Mul(hundred).InexactFloat64()
}

// ProfitMargins возвращает маржу по каждому товару, по убыванию
func ProfitMargins(sales []models.Sale) []models.ProductMargin {
	stats := groupByProduct(sales)
	margins := make([]models.ProductMargin, 0, len(stats))
	for _, st := range stats {
		margins = append(margins, models.ProductMargin{
			ProductName: st.name,
			Margin:      Margin(st.revenue, st.cost),
			Trend:       models.TrendStable,
		})
	}
	sort.SliceStable(margins, func(i, j int) bool {
		return margins[i].Margin > margins[j].Margin
	})
	return margins
}

// MaterialEfficiencies считает стоимость единицы материала и тренд расхода.
// Тренд сравнивает средний расход в поздней половине записей с ранней.
func MaterialEfficiencies(usage []models.MaterialUse) []models.MaterialEfficiency {
	var (
		order  []string
		byName = map[string][]models.MaterialUse{}
	)
	for _, u := range usage {
		if _, ok := byName[u.MaterialName]; !ok {
			order = append(order, u.MaterialName)
		}
		byName[u.MaterialName] = append(byName[u.MaterialName], u)
	}

	out := make([]models.MaterialEfficiency, 0, len(order))
	for _, name := range order {
		entries := byName[name]
		var (
			cost     decimal.Decimal
			quantity float64
		)
		for _, e := range entries {
			cost = cost.Add(e.Cost)
			quantity += e.Quantity
		}
		perUnit := decimal.Zero
		if quantity > 0 {
			perUnit = cost.Div(decimal.NewFromFloat(quantity)).Round(2)
		}
		out = append(out, models.MaterialEfficiency{
			MaterialName: name,
			CostPerUnit:  perUnit,
			UsageTrend:   usageTrend(entries),
		})
	}
	return out
}

func usageTrend(entries []models.MaterialUse) models.UsageTrend {
	if len(entries) < 2 {
		return models.TrendStable
	}
	sorted := make([]models.MaterialUse, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	half := len(sorted) / 2
	earlier := meanQuantity(sorted[:half])
	later := meanQuantity(sorted[half:])

	if earlier == 0 {
		if later > 0 {
			return models.TrendIncreasing
		}
		return models.TrendStable
	}
	change := (later - earlier) / earlier
	switch {
	case change > trendThreshold:
		return models.TrendIncreasing
	case change < -trendThreshold:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}

func meanQuantity(entries []models.MaterialUse) float64 {
	var sum float64
	for _, e := range entries {
		sum += e.Quantity
	}
	return sum / float64(len(entries))
}

// Recommendations собирает рекомендации заново по готовым показателям.
// Закупка лидера продаж предлагается только при продажах за последние 30 дней.
func Recommendations(sales []models.Sale, top []models.ProductSales, margins []models.ProductMargin, now time.Time) []models.Recommendation {
	recs := []models.Recommendation{}

	if len(top) > 0 && hasRecentSales(sales, now) {
		leader := top[0]
		recs = append(recs, models.Recommendation{
			Type:     models.RecommendBuy,
			Material: leader.ProductName,
			Quantity: math.Ceil(leader.TotalQuantity * restockShare),
			Reason:   fmt.Sprintf("High demand for %s", leader.ProductName),
			Priority: models.PriorityHigh,
		})
	}

	// margins отсортированы по убыванию, поэтому худшие в конце
	var low []models.ProductMargin
	for i := len(margins) - 1; i >= 0 && len(low) < lowMarginLimit; i-- {
		if margins[i].Margin < lowMarginThreshold {
			low = append(low, margins[i])
		}
	}
	for _, m := range low {
		recs = append(recs, models.Recommendation{
			Type:     models.RecommendOptimize,
			Material: m.ProductName,
			Quantity: 0,
			Reason:   fmt.Sprintf("Low profit margin (%.1f%%) - consider cost optimization", m.Margin),
			Priority: models.PriorityMedium,
		})
	}
	return recs
}

func hasRecentSales(sales []models.Sale, now time.Time) bool {
	cutoff := now.Add(-recentWindow)
	for _, s := range sales {
		if s.Date.After(cutoff) {
			return true
		}
	}
	return false
}

// Compute пересчитывает все показатели документа целиком
func Compute(sales []models.Sale, usage []models.MaterialUse, now time.Time) models.Insights {
	top := TopSelling(sales)
	margins := ProfitMargins(sales)
	return models.Insights{
		TopSellingProducts: top,
		MaterialEfficiency: MaterialEfficiencies(usage),
		ProfitMargins:      margins,
		Recommendations:    Recommendations(sales, top, margins, now),
	}
}

// BuildDashboard сводит итоги по документу аналитики
func BuildDashboard(a *models.Analytics) Dashboard {
	d := EmptyDashboard()
	if a == nil {
		return d
	}
	for _, s := range a.SalesData {
		d.TotalRevenue = d.TotalRevenue.Add(s.Revenue)
		d.TotalProfit = d.TotalProfit.Add(s.Profit)
	}
	d.TotalSales = len(a.SalesData)
	if d.TotalRevenue.IsPositive() {
		d.ProfitMargin = d.TotalProfit.Div(d.TotalRevenue).Mul(hundred).InexactFloat64()
	}
	if a.Insights.TopSellingProducts != nil {
		d.TopProducts = a.Insights.TopSellingProducts
	}
	if a.Insights.MaterialEfficiency != nil {
		d.MaterialEfficiency = a.Insights.MaterialEfficiency
	}
	if a.Insights.Recommendations != nil {
		d.Recommendations = a.Insights.Recommendations
	}
	return d
}

func EmptyDashboard() Dashboard {
	return Dashboard{
		TopProducts:        []models.ProductSales{},
		MaterialEfficiency: []models.MaterialEfficiency{},
		Recommendations:    []models.Recommendation{},
	}
}
