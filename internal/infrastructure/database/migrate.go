package database

import (
	"fmt"

	"aquasense-http-service/internal/domain/models"
	Logger "aquasense-http-service/pkg/logger"

	"gorm.io/gorm"
)

// 迁移模式
const (
	MigrationAuto  = "auto"
	MigrationAlter = "alter"
	MigrationDrop  = "drop"
)

// AllModels 需要迁移的全部模型
func AllModels() []interface{} {
	return []interface{}{
		&models.Establishment{},
		&models.Device{},
		&models.User{},
		&models.Notification{},
		&models.SessionHistory{},
	}
}

// Migrate 根据迁移模式执行数据库迁移
func Migrate(db *gorm.DB, mode string) error {
	switch mode {
	case MigrationDrop:
		Logger.Warning("在drop模式下运行，将删除并重建所有表")
		return DropAndRecreateTables(db)
	case MigrationAlter:
		Logger.Info("在alter模式下运行，将修改表结构以匹配模型")
		return AdvancedMigrate(db)
	default:
		Logger.Info("在标准模式下运行，将只添加新列和新表")
		return AutoMigrate(db)
	}
}

// AutoMigrate 自动迁移所有模型（只添加新列和新表）
func AutoMigrate(db *gorm.DB) error {
	// 旧数据中的 is_verified 可能是任意整数，先归一化再迁移
	if _, err := NormalizeLegacyVerification(db); err != nil {
		return err
	}

	if err := db.AutoMigrate(AllModels()...); err != nil {
		return err
	}

	Logger.Info("数据库迁移完成")
	return nil
}

// AdvancedMigrate 在标准迁移之后把 is_verified 列改为布尔类型
func AdvancedMigrate(db *gorm.DB) error {
	if err := AutoMigrate(db); err != nil {
		return err
	}

	if err := db.Migrator().AlterColumn(&models.User{}, "IsVerified"); err != nil {
		return fmt.Errorf("修改is_verified列失败: %w", err)
	}
	return nil
}

// DropAndRecreateTables 删除并重建所有表
func DropAndRecreateTables(db *gorm.DB) error {
	all := AllModels()
	// 逆序删除，先删除依赖其他表的表
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			Logger.Error("删除表失败: %v", err)
		}
	}
	return AutoMigrate(db)
}

// NormalizeLegacyVerification 把 is_verified 中 0/1 以外的旧值（例如误写入的设备号）改为 0。
// 返回被修正的行数
func NormalizeLegacyVerification(db *gorm.DB) (int64, error) {
	migrator := db.Migrator()
	if !migrator.HasTable(&models.User{}) || !migrator.HasColumn(&models.User{}, "is_verified") {
		return 0, nil
	}

	var ids []uint
	if err := db.Table("users").Where("is_verified NOT IN (0, 1) OR is_verified IS NULL").Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("查询旧的验证状态失败: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	Logger.Warning("发现%d个用户的is_verified为非布尔值，将重置为false: %v", len(ids), ids)
	result := db.Table("users").Where("id IN ?", ids).Update("is_verified", 0)
	if result.Error != nil {
		return 0, fmt.Errorf("修正旧的验证状态失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}
