package schema

// WooCommerce matches the product export of a French-localized WooCommerce
// store. English column names are accepted as secondary aliases.
var WooCommerce = Dialect{
	Name:       "woocommerce",
	Label:      "WooCommerce",
	Indicators: []string{"UGS", "Nom", "Tarif régulier", "Catégories"},
	Aliases: map[Field][]string{
		FieldName:        {"Nom", "Name"},
		FieldDescription: {"Description", "Description courte"},
		FieldPrice:       {"Tarif régulier", "Regular price", "Prix", "Price"},
		FieldBarcode:     {"UGS", "SKU", "GTIN, UPC, EAN ou ISBN", "Barcode"},
		FieldCategory:    {"Catégories", "Categories", "Category"},
		FieldStock:       {"Stock", "Stock quantity", "Quantité en stock"},
		FieldCostPrice:   {"Cost", "cout", "Cost price", "Prix de revient"},
	},
}

// Shopify matches the Shopify products CSV. Variant rows carry the price,
// SKU and inventory of each sellable item.
var Shopify = Dialect{
	Name:       "shopify",
	Label:      "Shopify",
	Indicators: []string{"Variant SKU", "Variant Price", "Handle"},
	Aliases: map[Field][]string{
		FieldName:        {"Title"},
		FieldDescription: {"Body (HTML)"},
		FieldPrice:       {"Variant Price"},
		FieldBarcode:     {"Variant Barcode", "Variant SKU"},
		FieldCategory:    {"Product Category", "Type"},
		FieldStock:       {"Variant Inventory Qty"},
		FieldCostPrice:   {"Cost per item"},
		FieldSupplier:    {"Vendor"},
	},
}

// Generic is the fallback for hand-made sheets. Matching is case-insensitive,
// so the lowercase spellings cover capitalized headers too.
var Generic = Dialect{
	Name:  GenericName,
	Label: "Generic",
	Aliases: map[Field][]string{
		FieldName:        {"name", "nom", "product_name", "produit"},
		FieldDescription: {"description", "desc"},
		FieldPrice:       {"price", "prix", "selling_price"},
		FieldBarcode:     {"barcode", "sku", "code"},
		FieldCategory:    {"category", "categorie"},
		FieldStock:       {"stock", "quantity", "qty"},
		FieldCostPrice:   {"cost", "cost_price", "prix_achat"},
		FieldSupplier:    {"supplier", "fournisseur"},
	},
}

// builtins are registered after custom dialects, in detection order.
var builtins = []Dialect{WooCommerce, Shopify}
