package spot_future

import (
	"analysis/internal/server/strategy/arbitrage"
	"context"
	"fmt"
	"math"
	"time"
)

// Scanner 现货期货套利扫描器实现
type Scanner struct {
	// TODO: 注入依赖，如现货和期货数据提供者等
}

// NewScanner 创建现货期货套利扫描器
func NewScanner() arbitrage.SpotFutureScanner {
	return &Scanner{}
}

// CompareSpotFuturePrices 比较现货期货价格
func (s *Scanner) CompareSpotFuturePrices(ctx context.Context, symbol string) ([]arbitrage.ArbitrageOpportunity, error) {
	var opportunities []arbitrage.ArbitrageOpportunity

	// 获取现货价格
	spotPrice, err := s.GetSpotPrice(ctx, symbol)
	if err != nil {
		return opportunities, fmt.Errorf("获取现货价格失败: %w", err)
	}

	// 获取期货价格
	futurePrice, err := s.GetFuturePrice(ctx, symbol)
	if err != nil {
		return opportunities, fmt.Errorf("获取期货价格失败: %w", err)
	}

	// 计算基差
	basisSpread := s.CalculateBasisSpread(spotPrice.Price, futurePrice.Price)

	// 检查是否有套利机会
	// 基差太大表示期货相对现货溢价，可以做反向套利
	// 基差太小或负数表示期货相对现货折价，可以做正向套利

	minBasisThreshold := 0.5 // 最小0.5%的基差才有套利价值

	if math.Abs(basisSpread) >= minBasisThreshold {
		opportunity := arbitrage.ArbitrageOpportunity{
			Type:          "spot_future",
			Symbol:        symbol,
			PriceA:        spotPrice.Price,   // 现货价格
			PriceB:        futurePrice.Price, // 期货价格
			ProfitPercent: math.Abs(basisSpread),
			ProfitAmount:  0, // 需要计算具体金额
			Volume:        math.Min(spotPrice.Volume, futurePrice.Volume),
			Confidence:    s.calculateSpotFutureConfidence(math.Abs(basisSpread)),
			Timestamp:     time.Now().Unix(),
		}

		// 确定套利方向
		if basisSpread > 0 {
			opportunity.Reason = "期货溢价，做空期货做多现货"
		} else {
			opportunity.Reason = "期货折价，做多期货做空现货"
		}

		opportunities = append(opportunities, opportunity)
	}

	return opportunities, nil
}

// GetSpotPrice 获取现货价格
func (s *Scanner) GetSpotPrice(ctx context.Context, symbol string) (*arbitrage.PriceData, error) {
	// 模拟获取现货价格
	// 实际实现应该调用真实的现货市场API

	basePrice := s.getBasePriceForSymbol(symbol)
	// 现货价格作为基准

	return &arbitrage.PriceData{
		Symbol:    symbol,
		Price:     basePrice,
		Volume:    s.getSimulatedSpotVolume(symbol),
		Exchange:  "spot",
		Timestamp: time.Now().Unix(),
	}, nil
}

// GetFuturePrice 获取期货价格
func (s *Scanner) GetFuturePrice(ctx context.Context, symbol string) (*arbitrage.PriceData, error) {
	// 模拟获取期货价格
	// 实际实现应该调用真实的期货市场API

	basePrice := s.getBasePriceForSymbol(symbol)
	// 期货价格通常有溢价或折价，这里模拟一个溢价
	futurePremium := 0.002 // 0.2%的溢价

	futurePrice := basePrice * (1 + futurePremium)

	return &arbitrage.PriceData{
		Symbol:    symbol,
		Price:     futurePrice,
		Volume:    s.getSimulatedFutureVolume(symbol),
		Exchange:  "future",
		Timestamp: time.Now().Unix(),
	}, nil
}

// CalculateBasisSpread 计算基差价差
func (s *Scanner) CalculateBasisSpread(spotPrice, futurePrice float64) float64 {
	if spotPrice == 0 {
		return 0
	}

	// 基差 = (期货价格 - 现货价格) / 现货价格 * 100%
	return ((futurePrice - spotPrice) / spotPrice) * 100
}

// calculateSpotFutureConfidence 计算现货期货套利置信度
func (s *Scanner) calculateSpotFutureConfidence(basisSpread float64) float64 {
	// 基于基差大小计算置信度
	if basisSpread >= 2.0 {
		return 0.8 // 大基差，高置信度
	} else if basisSpread >= 1.0 {
		return 0.6 // 中等基差，中等置信度
	} else if basisSpread >= 0.5 {
		return 0.4 // 小基差，低置信度
	}

	return 0.2 // 很小的基差
}

// getBasePriceForSymbol 获取交易对的基础价格
func (s *Scanner) getBasePriceForSymbol(symbol string) float64 {
	// 模拟价格数据
	basePrices := map[string]float64{
		"BTCUSDT": 50000.0,
		"ETHUSDT": 3000.0,
		"BNBUSDT": 300.0,
		"ADAUSDT": 1.2,
		"SOLUSDT": 100.0,
		"DOTUSDT": 15.0,
	}

	if price, exists := basePrices[symbol]; exists {
		return price
	}

	return 1.0 // 默认价格
}

// getSimulatedSpotVolume 获取模拟现货交易量
func (s *Scanner) getSimulatedSpotVolume(symbol string) float64 {
	volumes := map[string]float64{
		"BTCUSDT": 2000000.0,
		"ETHUSDT": 1500000.0,
		"BNBUSDT": 1000000.0,
		"ADAUSDT": 800000.0,
		"SOLUSDT": 600000.0,
		"DOTUSDT": 400000.0,
	}

	if volume, exists := volumes[symbol]; exists {
		return volume
	}

	return 500000.0 // 默认现货交易量
}

// getSimulatedFutureVolume 获取模拟期货交易量
func (s *Scanner) getSimulatedFutureVolume(symbol string) float64 {
	volumes := map[string]float64{
		"BTCUSDT": 1500000.0,
		"ETHUSDT": 1200000.0,
		"BNBUSDT": 800000.0,
		"ADAUSDT": 600000.0,
		"SOLUSDT": 500000.0,
		"DOTUSDT": 300000.0,
	}

	if volume, exists := volumes[symbol]; exists {
		return volume
	}

	return 400000.0 // 默认期货交易量
}
