// Package web3 封装区块链访问能力：链配置加载、统一客户端接口，
// 以及为代币交换准备链上提交所需的元数据。
package web3
