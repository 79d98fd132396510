// Package store 是唯一直接访问持久层的包，service 层只通过这里读写数据。
package store

import "gorm.io/gorm"

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}
