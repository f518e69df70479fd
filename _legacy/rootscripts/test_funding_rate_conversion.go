package main

import (
	"fmt"
	"strconv"
)

func main() {
	fmt.Println("🔍 资金费率输入转换问题分析")
	fmt.Println("============================")

	// 模拟不同的输入情况
	testCases := []struct {
		input       string
		description string
	}{
		{"1", "用户认为输入1表示1%"},
		{"0.01", "正确输入0.01表示1%"},
		{"-0.005", "placeholder默认值"},
		{"0.1", "输入0.1表示10%"},
		{"10", "极端情况：输入10"},
	}

	fmt.Println("📊 输入转换分析:")
	fmt.Println("输入值 | 用户意图 | 当前保存 | 实际费率 | 比较结果")
	fmt.Println("-------|----------|----------|----------|----------")

	for _, tc := range testCases {
		inputValue, _ := strconv.ParseFloat(tc.input, 64)

		// 模拟当前行为：直接保存输入值
		savedValue := inputValue

		// 实际费率应该是输入值除以100（如果用户输入百分比）
		actualRate := inputValue / 100

		// 模拟API返回的真实费率（例如0.005表示0.5%）
		realFundingRate := 0.005

		// 比较逻辑
		var comparisonResult string
		if realFundingRate < savedValue {
			comparisonResult = "❌ 会过滤掉 (错误)"
		} else {
			comparisonResult = "✅ 正常通过"
		}

		var actualComparison string
		if realFundingRate < actualRate {
			actualComparison = "❌ 会过滤掉 (错误)"
		} else {
			actualComparison = "✅ 正常通过"
		}

		fmt.Printf("%6s | %8s | %8.4f | %8.4f | %s\n",
			tc.input, tc.description, savedValue, actualRate, comparisonResult)

		if tc.input == "1" {
			fmt.Printf("       |          |          |          | 如果用户想输入1%%，应该输入0.01\n")
		}
	}

	fmt.Println("\n🎯 问题总结:")
	fmt.Println("   • 当前后端直接保存前端输入值")
	fmt.Println("   • 如果用户输入1(想表示1%)，实际保存为1.0")
	fmt.Println("   • 在比较时: 0.005 < 1.0，会错误地过滤掉符合条件的合约")

	fmt.Println("\n💡 解决方案:")

	fmt.Println("\n方案1️⃣: 前端输入转换 (推荐)")
	fmt.Println("   • 前端输入框显示为百分比，但实际发送小数值")
	fmt.Println("   • 输入1显示为1%，实际发送0.01")
	fmt.Println("   • 修改placeholder和step")

	fmt.Println("\n方案2️⃣: 后端保存转换")
	fmt.Println("   • 后端检测字段名，如果是资金费率字段则自动除以100")
	fmt.Println("   • 保持向后兼容")

	fmt.Println("\n方案3️⃣: 明确字段命名")
	fmt.Println("   • 重命名字段为 min_funding_rate_percent")
	fmt.Println("   • 明确表示这是百分比值")

	fmt.Println("\n🔧 推荐实施方案: 方案1️⃣ 前端转换")

	fmt.Println("\n📝 前端修改建议:")
	fmt.Println("   // 在发送数据前转换")
	fmt.Println("   if (conditions.futures_price_short_min_funding_rate != null) {")
	fmt.Println("     conditions.futures_price_short_min_funding_rate /= 100;")
	fmt.Println("   }")
	fmt.Println("   if (conditions.min_funding_rate != null) {")
	fmt.Println("     conditions.min_funding_rate /= 100;")
	fmt.Println("   }")

	fmt.Println("\n⚠️  重要提醒:")
	fmt.Println("   • 修改后需要清空现有数据或进行数据迁移")
	fmt.Println("   • 测试所有相关功能")
	fmt.Println("   • 更新文档说明")
}
