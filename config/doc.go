// Package config 提供 fedbroker 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（FEDBROKER_ 前缀）的顺序合并，
// 可选先加载 dotenv 文件，最后由 Validate 做 tag 校验与跨字段检查。
package config
