// Package mysql 提供共享的 MySQL 连接与迁移助手。
// 用户画像与定投计划的仓储都通过它建立连接池并执行版本化迁移。
package mysql
