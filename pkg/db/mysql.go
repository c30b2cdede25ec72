package db

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"car-service/pkg/model"
)

// Configured reports whether MySQL settings are present in the environment.
func Configured() bool {
	return os.Getenv("MYSQL_DSN") != "" || os.Getenv("MYSQL_HOST") != ""
}

// DSN builds the MySQL DSN.
// Env:
//
//	MYSQL_DSN or MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASS, MYSQL_DB
func DSN() string {
	if dsn := os.Getenv("MYSQL_DSN"); dsn != "" {
		return dsn
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		getenv("MYSQL_USER", "root"), getenv("MYSQL_PASS", ""),
		getenv("MYSQL_HOST", "127.0.0.1"), getenv("MYSQL_PORT", "3306"),
		getenv("MYSQL_DB", "car_service"))
}

// Init connects to MySQL and migrates the user table.
func Init() (*gorm.DB, error) {
	dsn := DSN()
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	db, err := gorm.Open(mysql.Open(dsn), cfg)
	if err != nil {
		// Try to create database if missing
		if strings.Contains(err.Error(), "Unknown database") && os.Getenv("MYSQL_DSN") == "" {
			if cerr := createDatabase(); cerr != nil {
				return nil, fmt.Errorf("create database failed: %w", cerr)
			}
			db, err = gorm.Open(mysql.Open(dsn), cfg)
			if err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	if err := db.AutoMigrate(&model.User{}); err != nil {
		return nil, err
	}
	return db, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func createDatabase() error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/",
		getenv("MYSQL_USER", "root"), getenv("MYSQL_PASS", ""),
		getenv("MYSQL_HOST", "127.0.0.1"), getenv("MYSQL_PORT", "3306"))
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` DEFAULT CHARACTER SET utf8mb4", getenv("MYSQL_DB", "car_service")))
	return err
}
