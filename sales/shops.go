package sales

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// Shop is a row of the shop reference table.
type Shop struct {
	ID   int    `json:"shop_id"`
	Name string `json:"shop_name"`
}

// Shops is the shop reference table in file order.
type Shops []Shop

// LoadShops reads the shop reference file at path.
func LoadShops(path string) (Shops, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrRead, "open %s: %v", path, err)
	}
	defer file.Close()

	shops, err := ReadShops(file)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return shops, nil
}

// ReadShops reads "shop_name,shop_id" rows from a CSV stream.
func ReadShops(r io.Reader) (Shops, error) {
	reader := newReader(r)

	index, err := readHeader(reader, []string{ColShopName, ColShopID})
	if err != nil {
		return nil, err
	}

	var shops Shops
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapReadError(err)
		}
		line, _ := reader.FieldPos(0)

		raw, ok := cell(row, index, ColShopID)
		if !ok {
			return nil, parseError(line, "missing %s", ColShopID)
		}
		id, err := parseInt(raw)
		if err != nil {
			return nil, parseError(line, "%s %q is not an integer", ColShopID, raw)
		}
		name, _ := cell(row, index, ColShopName)

		shops = append(shops, Shop{ID: id, Name: name})
	}

	return shops, nil
}

// ByName returns the shop with the given name.
func (s Shops) ByName(name string) (Shop, bool) {
	for _, shop := range s {
		if shop.Name == name {
			return shop, true
		}
	}
	return Shop{}, false
}

// ByID returns the shop with the given id.
func (s Shops) ByID(id int) (Shop, bool) {
	for _, shop := range s {
		if shop.ID == id {
			return shop, true
		}
	}
	return Shop{}, false
}

// Present returns the shops whose id appears in the table, in file order.
func (s Shops) Present(table Table) Shops {
	counts := table.CountByShop()
	out := make(Shops, 0, len(counts))
	for _, shop := range s {
		if counts[shop.ID] > 0 {
			out = append(out, shop)
		}
	}
	return out
}
