package server

import (
	"context"
	"log"
)

// RunWalkForwardAnalysis 执行走步前进分析
func (be *BacktestEngine) RunWalkForwardAnalysis(ctx context.Context, config BacktestConfig, analysis WalkForwardAnalysis) (*WalkForwardResult, error) {
	log.Printf("[INFO] Starting walk-forward analysis from %s to %s",
		analysis.StartDate.Format("2006-01-02"), analysis.EndDate.Format("2006-01-02"))

	// 简化实现：这里应该实现完整的走步前进分析逻辑
	// 目前返回一个基本的结构

	result := &WalkForwardResult{
		Analysis: analysis,
	}

	log.Printf("[INFO] Walk-forward analysis completed")
	return result, nil
}

// RunMonteCarloAnalysis 执行蒙特卡洛分析
func (be *BacktestEngine) RunMonteCarloAnalysis(ctx context.Context, config BacktestConfig, analysis MonteCarloAnalysis) (*MonteCarloResult, error) {
	log.Printf("[INFO] Starting Monte Carlo analysis with %d simulations", analysis.Simulations)

	// 简化实现：这里应该实现完整的蒙特卡洛分析逻辑
	// 目前返回一个基本的结构

	result := &MonteCarloResult{
		Analysis: analysis,
	}

	log.Printf("[INFO] Monte Carlo analysis completed")
	return result, nil
}

// RunStrategyOptimization 执行策略优化
func (be *BacktestEngine) RunStrategyOptimization(ctx context.Context, config BacktestConfig, optimization StrategyOptimization) (*OptimizationResult, error) {
	log.Printf("[INFO] Starting strategy optimization with objective: %s", optimization.Objective)

	// 简化实现：这里应该实现完整的策略优化逻辑
	// 目前返回一个基本的结构

	result := &OptimizationResult{
		Parameters:     make(map[string]interface{}),
		ObjectiveValue: 0.0,
		Constraints:    make(map[string]bool),
	}

	log.Printf("[INFO] Strategy optimization completed")
	return result, nil
}

// RunAttributionAnalysis 执行归因分析
func (be *BacktestEngine) RunAttributionAnalysis(ctx context.Context, config BacktestConfig, analysis AttributionAnalysis) (*AttributionAnalysis, error) {
	log.Printf("[INFO] Starting attribution analysis for %s", config.Symbol)

	// 简化实现：这里应该实现完整的归因分析逻辑
	// 目前返回传入的结构

	log.Printf("[INFO] Attribution analysis completed")
	return &analysis, nil
}

// CompareStrategies 比较策略
func (be *BacktestEngine) CompareStrategies(ctx context.Context, configs []BacktestConfig) (*StrategyComparison, error) {
	log.Printf("[INFO] Starting strategy comparison for %d strategies", len(configs))

	// 简化实现：这里应该实现完整的策略比较逻辑
	result := &StrategyComparison{
		Strategies: make([]StrategyResult, len(configs)),
	}

	log.Printf("[INFO] Strategy comparison completed")
	return result, nil
}

// RunBatchBacktest 执行批量回测
func (be *BacktestEngine) RunBatchBacktest(ctx context.Context, configs []BacktestConfig) (*BatchBacktestResult, error) {
	log.Printf("[INFO] Starting batch backtest for %d configurations", len(configs))

	// 简化实现：这里应该实现完整的批量回测逻辑
	result := &BatchBacktestResult{
		Results: make([]BacktestResult, len(configs)),
	}

	log.Printf("[INFO] Batch backtest completed")
	return result, nil
}

// OptimizeStrategy 执行策略优化
func (be *BacktestEngine) OptimizeStrategy(ctx context.Context, config BacktestConfig, optimization StrategyOptimization) (*OptimizationResult, error) {
	log.Printf("[INFO] Starting strategy optimization for %s", config.Symbol)

	// 简化实现：这里应该实现完整的策略优化逻辑
	result := &OptimizationResult{
		Parameters:     make(map[string]interface{}),
		ObjectiveValue: 0.0,
		Constraints:    make(map[string]bool),
	}

	log.Printf("[INFO] Strategy optimization completed")
	return result, nil
}

// StrategyComparison 策略比较
type StrategyComparison struct {
	Strategies []StrategyResult `json:"strategies"`
}

// StrategyResult 策略结果
type StrategyResult struct {
	Config BacktestConfig `json:"config"`
	Result BacktestResult `json:"result"`
	Rank   int            `json:"rank"`
	Score  float64        `json:"score"`
}

// BatchBacktestResult 批量回测结果
type BatchBacktestResult struct {
	Results []BacktestResult `json:"results"`
	Summary BatchSummary     `json:"summary"`
}

// BatchSummary 批量摘要
type BatchSummary struct {
	TotalConfigurations int     `json:"total_configurations"`
	BestConfiguration   int     `json:"best_configuration"`
	WorstConfiguration  int     `json:"worst_configuration"`
	AverageReturn       float64 `json:"average_return"`
	BestReturn          float64 `json:"best_return"`
	WorstReturn         float64 `json:"worst_return"`
}
