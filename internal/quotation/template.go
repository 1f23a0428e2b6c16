package quotation

// TemplateItem is one line of the default component list seeded into every
// new quotation.
type TemplateItem struct {
	ItemName      string
	ItemType      string
	Quantity      int
	QuantityToBuy int
}

// DefaultItems returns the standard electronics component template. The
// list mirrors the production BOM spreadsheet.
func DefaultItems() []TemplateItem {
	items := make([]TemplateItem, len(defaultTemplate))
	copy(items, defaultTemplate)
	return items
}

var defaultTemplate = []TemplateItem{
	{ItemName: "BARRA CONECTORA 180º 2 VIAS(BMO002-1E)", ItemType: "PTH", Quantity: 6, QuantityToBuy: 12000},
	{ItemName: "BT151-800R NXP", ItemType: "PTH", Quantity: 1, QuantityToBuy: 2000},
	{ItemName: "CAP 4,7uF / 400V POLIESTER (27,8 X 15,6 X 30 WEIDY)", ItemType: "PTH", Quantity: 1, QuantityToBuy: 2000},
	{ItemName: "CAP ELCO RADIAL 4.7uF 400V", ItemType: "PTH", Quantity: 1, QuantityToBuy: 2000},
	{ItemName: "CAP ELCO RADIAL 470uF 16V", ItemType: "PTH", Quantity: 1, QuantityToBuy: 2000},
	{ItemName: "CAP MULTICAMADA 10nF 2kV (103)", ItemType: "PTH", Quantity: 1, QuantityToBuy: 2000},
	{ItemName: "CHAVE TACTIL 6 x 6 x 4,3 mm", ItemType: "PTH", Quantity: 2, QuantityToBuy: 4000},
	{ItemName: "FOTODIODO (PT334/6B)", ItemType: "PTH", Quantity: 1, QuantityToBuy: 2000},
	{ItemName: "JUMPER PRETO MKBL", ItemType: "PTH", Quantity: 5, QuantityToBuy: 10000},
	{ItemName: "KK MACHO 2 VIAS 2,54MM", ItemType: "PTH", Quantity: 1, QuantityToBuy: 2000},
	{ItemName: "KRE 2 VIAS (MINI)", ItemType: "PTH", Quantity: 4, QuantityToBuy: 8000},
	{ItemName: "KRE 3 VIAS (MINI)", ItemType: "PTH", Quantity: 3, QuantityToBuy: 6000},
	{ItemName: "LED INFRAVERMELHO (IR333/A)", ItemType: "PTH", Quantity: 1, QuantityToBuy: 2000},
	{ItemName: "LED VERMELHO DIFUSO (600 MCD)", ItemType: "PTH", Quantity: 1, QuantityToBuy: 8000},
	{ItemName: "Resistor FIO 0,40mm", ItemType: "PTH", Quantity: 2, QuantityToBuy: 5000},
	{ItemName: "Resistor filme CCO 68K 3W", ItemType: "PTH", Quantity: 3, QuantityToBuy: 6000},
	{ItemName: "TRANSISTOR BD140", ItemType: "PTH", Quantity: 1, QuantityToBuy: 2000},
	{ItemName: "VARISTOR 275K10 (TVR 10 431)", ItemType: "PTH", Quantity: 1, QuantityToBuy: 2000},
	{ItemName: "CAP MULTICAMADA (0603) 1,8pF", ItemType: "SMD", Quantity: 1, QuantityToBuy: 4000},
	{ItemName: "CAP MULTICAMADA (0603) 1nF 50V", ItemType: "SMD", Quantity: 1, QuantityToBuy: 4000},
	{ItemName: "CAP MULTICAMADA (0603) 100nF 50V", ItemType: "SMD", Quantity: 6, QuantityToBuy: 12000},
	{ItemName: "CAP MULTICAMADA (0603) 4,7uF 16V", ItemType: "SMD", Quantity: 1, QuantityToBuy: 4000},
	{ItemName: "CI HT66F0185 SOP (300mil)", ItemType: "SMD", Quantity: 1, QuantityToBuy: 2000},
	{ItemName: "CI LP3783", ItemType: "SMD", Quantity: 1, QuantityToBuy: 2500},
	{ItemName: "CI SYN590R", ItemType: "SMD", Quantity: 1, QuantityToBuy: 2500},
	{ItemName: "DIODO M7 (SMA)", ItemType: "SMD", Quantity: 9, QuantityToBuy: 18000},
	{ItemName: "DIODO US1M (SMA)", ItemType: "SMD", Quantity: 6, QuantityToBuy: 12000},
	{ItemName: "INDUTOR (0603) 39nH", ItemType: "SMD", Quantity: 1, QuantityToBuy: 4000},
	{ItemName: "REGULADOR 78L05 (SOIC-8)", ItemType: "SMD", Quantity: 1, QuantityToBuy: 2500},
	{ItemName: "RESISTOR (0805) 0R", ItemType: "SMD", Quantity: 1, QuantityToBuy: 5000},
	{ItemName: "RESISTOR (0805) 1R5 1%", ItemType: "SMD", Quantity: 1, QuantityToBuy: 5000},
	{ItemName: "RESISTOR (0603) 4R7", ItemType: "SMD", Quantity: 2, QuantityToBuy: 5000},
	{ItemName: "RESISTOR (0603) 330R", ItemType: "SMD", Quantity: 1, QuantityToBuy: 5000},
	{ItemName: "RESISTOR (0603) 470R", ItemType: "SMD", Quantity: 4, QuantityToBuy: 10000},
	{ItemName: "RESISTOR (0603) 680R", ItemType: "SMD", Quantity: 1, QuantityToBuy: 5000},
	{ItemName: "RESISTOR (0603) 1K", ItemType: "SMD", Quantity: 6, QuantityToBuy: 15000},
	{ItemName: "RESISTOR (0603) 4K7", ItemType: "SMD", Quantity: 11, QuantityToBuy: 25000},
	{ItemName: "RESISTOR (0603) 12K7 1%", ItemType: "SMD", Quantity: 2, QuantityToBuy: 5000},
	{ItemName: "RESISTOR (0805) 16K9 1%", ItemType: "SMD", Quantity: 1, QuantityToBuy: 5000},
	{ItemName: "RESISTOR (0603) 120K", ItemType: "SMD", Quantity: 1, QuantityToBuy: 5000},
	{ItemName: "RESISTOR (0603) 1M5", ItemType: "SMD", Quantity: 1, QuantityToBuy: 5000},
	{ItemName: "RESISTOR (0805) 2M7 1%", ItemType: "SMD", Quantity: 1, QuantityToBuy: 5000},
	{ItemName: "TRANSISTOR BC807-40 (SOT-23)", ItemType: "SMD", Quantity: 2, QuantityToBuy: 6000},
	{ItemName: "TRANSISTOR BC817-40 ( 6C ) (SOT-23)", ItemType: "SMD", Quantity: 5, QuantityToBuy: 12000},
}
