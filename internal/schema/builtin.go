// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package schema

import "strings"

// DomainForTable maps a table name to its business domain by prefix.
// Returns "" when the prefix is unknown.
func DomainForTable(table string) string {
	upper := strings.ToUpper(table)
	for prefix, domain := range tablePrefixDomains {
		if strings.HasPrefix(upper, prefix) {
			return domain
		}
	}
	return ""
}

// tablePrefixDomains maps Oracle application table prefixes to domains.
var tablePrefixDomains = map[string]string{
	"MTL_": "ERP",
	"CST_": "ERP",
	"OE_":  "ERP",
	"HR_":  "ERP",
	"PO_":  "ERP",
	"WSH_": "ERP",
	"GL_":  "FINANCE",
	"AP_":  "FINANCE",
	"AR_":  "FINANCE",
	"FA_":  "FINANCE",
}

// builtinCatalogs returns the compiled-in catalogs. The "erp_r12" catalog
// covers the inventory/order entities the dialect repairs key on; the
// "default" catalog is a small general-purpose schema for dev databases.
func builtinCatalogs() []Catalog {
	return []Catalog{
		{
			DatabaseID: "erp_r12",
			Tables: []Table{
				{
					Name:        "MTL_SYSTEM_ITEMS_B",
					Description: "Inventory item master; one row per item per organization",
					Keywords:    []string{"item", "items", "inventory", "product", "products", "sku"},
					Columns: []Column{
						{Name: "INVENTORY_ITEM_ID", Type: "NUMBER", Description: "Item identifier, half of the compound natural key"},
						{Name: "ORGANIZATION_ID", Type: "NUMBER", Description: "Owning organization, half of the compound natural key"},
						{Name: "SEGMENT1", Type: "VARCHAR2", Description: "Item code visible to users"},
						{Name: "DESCRIPTION", Type: "VARCHAR2", Description: "Item description"},
						{Name: "PRIMARY_UOM_CODE", Type: "VARCHAR2", Description: "Primary unit of measure"},
					},
				},
				{
					Name:        "CST_ITEM_COSTS",
					Description: "Item cost per organization and cost type; the only table carrying ITEM_COST",
					Keywords:    []string{"cost", "costs", "price", "valuation"},
					Columns: []Column{
						{Name: "INVENTORY_ITEM_ID", Type: "NUMBER", Description: "Item identifier"},
						{Name: "ORGANIZATION_ID", Type: "NUMBER", Description: "Owning organization"},
						{Name: "COST_TYPE_ID", Type: "NUMBER", Description: "Cost type (frozen, pending)"},
						{Name: "ITEM_COST", Type: "NUMBER", Description: "Unit cost of the item"},
					},
				},
				{
					Name:        "MTL_ONHAND_QUANTITIES",
					Description: "On-hand inventory balances by item, organization, and subinventory",
					Keywords:    []string{"onhand", "stock", "quantity", "quantities", "balance"},
					Columns: []Column{
						{Name: "INVENTORY_ITEM_ID", Type: "NUMBER", Description: "Item identifier"},
						{Name: "ORGANIZATION_ID", Type: "NUMBER", Description: "Owning organization"},
						{Name: "SUBINVENTORY_CODE", Type: "VARCHAR2", Description: "Subinventory holding the stock"},
						{Name: "TRANSACTION_QUANTITY", Type: "NUMBER", Description: "Quantity on hand"},
					},
				},
				{
					Name:        "OE_ORDER_HEADERS_ALL",
					Description: "Sales order headers",
					Keywords:    []string{"order", "orders", "sales", "booking", "bookings"},
					Columns: []Column{
						{Name: "HEADER_ID", Type: "NUMBER", Description: "Order header identifier"},
						{Name: "ORDER_NUMBER", Type: "NUMBER", Description: "User-visible order number"},
						{Name: "ORDERED_DATE", Type: "DATE", Description: "Date the order was placed"},
						{Name: "SOLD_TO_ORG_ID", Type: "NUMBER", Description: "Customer account"},
						{Name: "FLOW_STATUS_CODE", Type: "VARCHAR2", Description: "Order workflow status"},
					},
				},
				{
					Name:        "OE_ORDER_LINES_ALL",
					Description: "Sales order lines",
					Keywords:    []string{"line", "lines", "ordered", "shipped"},
					Columns: []Column{
						{Name: "LINE_ID", Type: "NUMBER", Description: "Order line identifier"},
						{Name: "HEADER_ID", Type: "NUMBER", Description: "Parent order header"},
						{Name: "INVENTORY_ITEM_ID", Type: "NUMBER", Description: "Ordered item"},
						{Name: "ORDERED_QUANTITY", Type: "NUMBER", Description: "Quantity ordered"},
						{Name: "UNIT_SELLING_PRICE", Type: "NUMBER", Description: "Selling price per unit"},
					},
				},
				{
					Name:        "HR_OPERATING_UNITS",
					Description: "Operating units (business units) of the enterprise",
					Keywords:    []string{"operating", "unit", "units", "organization", "organizations", "business"},
					Columns: []Column{
						{Name: "ORGANIZATION_ID", Type: "NUMBER", Description: "Operating unit identifier"},
						{Name: "NAME", Type: "VARCHAR2", Description: "Operating unit name"},
						{Name: "DATE_FROM", Type: "DATE", Description: "Effective start date"},
					},
				},
			},
			Relationships: []Relationship{
				{
					SourceTable: "MTL_SYSTEM_ITEMS_B",
					TargetTable: "CST_ITEM_COSTS",
					Predicate:   "MSI.INVENTORY_ITEM_ID = CIC.INVENTORY_ITEM_ID AND MSI.ORGANIZATION_ID = CIC.ORGANIZATION_ID",
					Description: "Item master to item costs on the compound item/organization key",
				},
				{
					SourceTable: "MTL_SYSTEM_ITEMS_B",
					TargetTable: "MTL_ONHAND_QUANTITIES",
					Predicate:   "MSI.INVENTORY_ITEM_ID = MOQ.INVENTORY_ITEM_ID AND MSI.ORGANIZATION_ID = MOQ.ORGANIZATION_ID",
					Description: "Item master to on-hand balances on the compound item/organization key",
				},
				{
					SourceTable: "OE_ORDER_HEADERS_ALL",
					TargetTable: "OE_ORDER_LINES_ALL",
					Predicate:   "OH.HEADER_ID = OL.HEADER_ID",
					Description: "Order headers to lines",
				},
			},
		},
		{
			DatabaseID: "default",
			Tables: []Table{
				{
					Name:        "GL_JE_HEADERS",
					Description: "General ledger journal entry headers",
					Keywords:    []string{"journal", "ledger", "entry", "entries", "gl"},
					Columns: []Column{
						{Name: "JE_HEADER_ID", Type: "NUMBER", Description: "Journal entry identifier"},
						{Name: "PERIOD_NAME", Type: "VARCHAR2", Description: "Accounting period"},
						{Name: "STATUS", Type: "VARCHAR2", Description: "Posting status"},
					},
				},
				{
					Name:        "AP_INVOICES_ALL",
					Description: "Payables invoices",
					Keywords:    []string{"invoice", "invoices", "payable", "payables", "supplier"},
					Columns: []Column{
						{Name: "INVOICE_ID", Type: "NUMBER", Description: "Invoice identifier"},
						{Name: "INVOICE_NUM", Type: "VARCHAR2", Description: "Supplier invoice number"},
						{Name: "INVOICE_AMOUNT", Type: "NUMBER", Description: "Invoice total amount"},
						{Name: "INVOICE_DATE", Type: "DATE", Description: "Invoice date"},
					},
				},
			},
		},
	}
}
