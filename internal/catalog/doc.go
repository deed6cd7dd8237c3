// Package catalog provides the read-only schema tree the column picker is
// built from, plus the join rules that belong to the same dataset.
//
// The tree has three levels:
//
//	Category → Table → Column
//
// The built-in catalog (Default) is the sample dataset with two categories
// (Risk, Trade), two tables each and two columns per table. A catalog can
// also be loaded from a CUE file:
//
//	category: Risk: table: rtable1: column: ["rcol11", "rcol12"]
//	join: [{left: "rtable1", right: "ttable1", on: "rtable1.rcol11 = ttable1.tcol12"}]
//
// Categories, tables and columns keep their declaration order.
package catalog
