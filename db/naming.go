// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"gorm.io/gorm/schema"
)

// maxIdentifier is PostgreSQL's identifier limit
const maxIdentifier = 63

// NamingStrategy keeps gorm's table and column names but gives constraints
// and indexes predictable prefixes:
//
//	ix_<table>_<column>
//	uq_<table>_<column>
//	ck_<table>_<column>
//	fk_<table>_<column>_<referred table>
//
// Columns may arrive as Go field names; they are converted like gorm's
// own column names.
type NamingStrategy struct {
	schema.NamingStrategy
}

func (ns NamingStrategy) IndexName(table, column string) string {
	return identifier(fmt.Sprintf("ix_%s_%s", table, ns.ColumnName("", column)))
}

func (ns NamingStrategy) UniqueName(table, column string) string {
	return identifier(fmt.Sprintf("uq_%s_%s", table, ns.ColumnName("", column)))
}

func (ns NamingStrategy) CheckerName(table, column string) string {
	return identifier(fmt.Sprintf("ck_%s_%s", table, ns.ColumnName("", column)))
}

func (ns NamingStrategy) RelationshipFKName(rel schema.Relationship) string {
	if len(rel.References) == 0 {
		return ns.NamingStrategy.RelationshipFKName(rel)
	}
	ref := rel.References[0]
	if ref.ForeignKey == nil || ref.PrimaryKey == nil || ref.ForeignKey.Schema == nil || ref.PrimaryKey.Schema == nil {
		return ns.NamingStrategy.RelationshipFKName(rel)
	}
	return identifier(fmt.Sprintf("fk_%s_%s_%s",
		ref.ForeignKey.Schema.Table, ref.ForeignKey.DBName, ref.PrimaryKey.Schema.Table))
}

// identifier shortens names past the limit, keeping them unique with a
// hash suffix
func identifier(name string) string {
	if len(name) <= maxIdentifier {
		return name
	}
	sum := sha1.Sum([]byte(name))
	suffix := hex.EncodeToString(sum[:])[:8]
	return name[:maxIdentifier-9] + "_" + suffix
}
