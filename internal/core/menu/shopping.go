package menu

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"inflammation-planner/internal/core/recipe"
	"inflammation-planner/internal/pkg/common"
)

type unitKind string

const (
	unitKindMass   unitKind = "mass"
	unitKindVolume unitKind = "volume"
)

type unitDef struct {
	kind       unitKind
	toBaseUnit float64
}

// unitTable 可互相換算的單位；質量以 g、體積以 ml 為基準
var unitTable = map[string]unitDef{
	"mg":  {kind: unitKindMass, toBaseUnit: 0.001},
	"g":   {kind: unitKindMass, toBaseUnit: 1},
	"kg":  {kind: unitKindMass, toBaseUnit: 1000},
	"oz":  {kind: unitKindMass, toBaseUnit: 28.349523125},
	"lb":  {kind: unitKindMass, toBaseUnit: 453.59237},
	"lbs": {kind: unitKindMass, toBaseUnit: 453.59237},

	"ml":    {kind: unitKindVolume, toBaseUnit: 1},
	"l":     {kind: unitKindVolume, toBaseUnit: 1000},
	"tsp":   {kind: unitKindVolume, toBaseUnit: 4.92892159375},
	"tbsp":  {kind: unitKindVolume, toBaseUnit: 14.78676478125},
	"cup":   {kind: unitKindVolume, toBaseUnit: 236.5882365},
	"cups":  {kind: unitKindVolume, toBaseUnit: 236.5882365},
	"fl-oz": {kind: unitKindVolume, toBaseUnit: 29.5735295625},
}

func resolveUnit(unit string) (unitDef, bool) {
	def, ok := unitTable[strings.ToLower(strings.TrimSpace(unit))]
	return def, ok
}

// convertQuantity 同類單位換算；不同類或未知單位時回傳 false
func convertQuantity(value float64, from, to string) (float64, bool) {
	if strings.EqualFold(strings.TrimSpace(from), strings.TrimSpace(to)) {
		return value, true
	}
	f, ok := resolveUnit(from)
	if !ok {
		return 0, false
	}
	t, ok := resolveUnit(to)
	if !ok || f.kind != t.kind {
		return 0, false
	}
	return value * f.toBaseUnit / t.toBaseUnit, true
}

// UnitConflict 無法與主要單位合併的數量
type UnitConflict struct {
	Unit     string  `json:"unit"`
	Quantity float64 `json:"quantity"`
}

// ShoppingItem 購物清單中的一項食材
type ShoppingItem struct {
	Name          string         `json:"-"`
	Unit          string         `json:"unit"`
	TotalQuantity float64        `json:"total_quantity"`
	UsedInMeals   []string       `json:"used_in_meals"`
	UnitConflicts []UnitConflict `json:"unit_conflicts,omitempty"`
}

// MarshalJSON 輸出時才四捨五入
func (i ShoppingItem) MarshalJSON() ([]byte, error) {
	type plain ShoppingItem
	out := plain(i)
	out.TotalQuantity = common.Round(i.TotalQuantity, 3)
	return json.Marshal(out)
}

// ShoppingList 依首次出現順序排列的購物清單
type ShoppingList struct {
	Items []*ShoppingItem
	index map[string]*ShoppingItem
}

// Get 以食材名稱取得項目
func (l *ShoppingList) Get(name string) (*ShoppingItem, bool) {
	item, ok := l.index[name]
	return item, ok
}

// Len 回傳不重複食材數
func (l *ShoppingList) Len() int {
	return len(l.Items)
}

// MarshalJSON 輸出 {"shopping_list":{...},"total_unique_ingredients":n}
func (l *ShoppingList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"shopping_list":{`)
	for i, item := range l.Items {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(item.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		data, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	fmt.Fprintf(&buf, `},"total_unique_ingredients":%d}`, len(l.Items))
	return buf.Bytes(), nil
}

// BuildShoppingList 彙總週菜單中所有食材
//
// 同名食材以第一次出現的單位為主；可換算的質量或體積單位會換算後相加，
// 無法換算的數量另列於 UnitConflicts，不會併入總量。
func BuildShoppingList(m *Menu) *ShoppingList {
	list := &ShoppingList{index: make(map[string]*ShoppingItem)}
	if m == nil {
		return list
	}

	m.Slots(func(day string, meal recipe.MealType, slot Slot) {
		usage := fmt.Sprintf("%s %s: %s", day, meal, slot.Recipe.Title)
		for _, ing := range slot.Recipe.Ingredients {
			item, ok := list.index[ing.Name]
			if !ok {
				item = &ShoppingItem{Name: ing.Name, Unit: ing.Unit}
				list.index[ing.Name] = item
				list.Items = append(list.Items, item)
			}
			item.UsedInMeals = append(item.UsedInMeals, usage)

			if q, ok := convertQuantity(ing.Quantity, ing.Unit, item.Unit); ok {
				item.TotalQuantity += q
				continue
			}
			item.addConflict(ing.Unit, ing.Quantity)
		}
	})

	return list
}

func (i *ShoppingItem) addConflict(unit string, qty float64) {
	for k := range i.UnitConflicts {
		if strings.EqualFold(i.UnitConflicts[k].Unit, unit) {
			i.UnitConflicts[k].Quantity += qty
			return
		}
	}
	i.UnitConflicts = append(i.UnitConflicts, UnitConflict{Unit: unit, Quantity: qty})
}
