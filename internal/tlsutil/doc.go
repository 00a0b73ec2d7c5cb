// Package tlsutil 为 broker 客户端提供统一的 HTTP 传输：
// 连接复用，且访问 https broker 时强制 TLS 1.2+ 与 AEAD 密码套件。
package tlsutil
