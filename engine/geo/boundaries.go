// Package geo attributes features to EU member states. Boundaries are
// deliberately conservative simplifications: a polygon sits inside its
// country's real border, so a hit is reliable and a miss near the border is
// acceptable. Features are matched by explicit country attribute first, with
// point-in-polygon as the fallback.
package geo

import "github.com/gridatlas/gridatlas/engine/model"

// boundaries maps ISO2 codes to simplified inland rings in (lon, lat) order.
// Rings are open; the closing edge back to the first vertex is implicit.
var boundaries = map[string][]model.Position{
	"AT": {{10.0, 47.2}, {12.5, 47.0}, {14.0, 46.6}, {16.0, 46.8}, {16.8, 47.6}, {16.5, 48.7}, {14.4, 48.5}, {12.8, 48.1}, {11.0, 47.4}},
	"BE": {{2.8, 50.7}, {4.2, 49.9}, {5.7, 49.8}, {6.2, 50.5}, {5.6, 51.1}, {4.5, 51.4}, {3.2, 51.3}},
	"BG": {{22.9, 41.6}, {25.5, 41.4}, {27.8, 42.0}, {28.4, 43.4}, {27.0, 44.0}, {23.0, 43.7}, {22.4, 42.6}},
	"CY": {{32.4, 34.7}, {33.8, 34.6}, {34.4, 35.4}, {33.0, 35.3}},
	"CZ": {{12.5, 49.6}, {14.5, 48.8}, {16.5, 48.9}, {18.2, 49.4}, {17.5, 50.1}, {15.0, 50.7}, {13.0, 50.4}},
	"DE": {{6.8, 49.2}, {8.5, 48.0}, {10.5, 47.8}, {12.8, 48.4}, {13.8, 48.8}, {14.6, 51.0}, {14.0, 53.0}, {13.5, 54.3}, {9.0, 54.5}, {7.2, 53.5}, {6.2, 51.8}, {6.3, 50.3}},
	"DK": {{8.3, 55.0}, {9.5, 54.85}, {12.0, 54.7}, {12.8, 55.1}, {12.9, 56.0}, {10.5, 57.6}, {8.5, 56.8}},
	"EE": {{23.6, 57.9}, {27.5, 57.7}, {28.0, 59.0}, {26.5, 59.6}, {24.0, 59.5}},
	"ES": {{-8.8, 42.0}, {-8.0, 40.0}, {-7.0, 38.0}, {-6.0, 36.5}, {-4.5, 36.6}, {-2.2, 36.8}, {-0.7, 37.8}, {0.2, 39.5}, {0.5, 40.5}, {3.0, 41.8}, {1.0, 42.4}, {-1.8, 43.2}, {-7.6, 43.5}},
	"FI": {{21.3, 60.05}, {26.5, 60.05}, {29.3, 61.5}, {29.0, 64.0}, {27.0, 66.5}, {23.5, 65.5}, {21.3, 62.5}},
	"FR": {{-4.5, 48.3}, {-1.8, 46.2}, {-1.2, 43.6}, {1.5, 42.6}, {3.0, 43.0}, {4.8, 43.4}, {6.5, 43.3}, {7.0, 44.5}, {6.3, 46.3}, {6.0, 47.5}, {7.8, 48.8}, {4.0, 49.9}, {1.8, 50.8}, {-1.5, 49.5}},
	"GR": {{20.8, 39.5}, {21.3, 37.4}, {22.5, 36.6}, {24.2, 37.6}, {24.3, 38.6}, {23.5, 40.6}, {21.8, 40.4}},
	"HR": {{15.2, 45.5}, {17.0, 45.4}, {18.6, 45.3}, {18.9, 45.7}, {16.8, 46.1}, {15.6, 46.0}},
	"HU": {{16.5, 46.9}, {18.0, 46.0}, {20.5, 46.3}, {22.0, 47.5}, {21.0, 48.2}, {19.0, 48.0}, {17.2, 47.8}},
	"IE": {{-10.0, 52.0}, {-8.0, 51.6}, {-6.5, 52.2}, {-6.2, 53.5}, {-7.0, 54.8}, {-9.5, 54.2}},
	"IT": {{7.6, 45.2}, {12.2, 46.3}, {13.6, 45.9}, {13.2, 45.0}, {14.5, 42.8}, {15.9, 41.8}, {18.0, 40.6}, {17.2, 40.0}, {16.2, 39.0}, {15.9, 38.2}, {15.6, 39.0}, {15.0, 40.2}, {13.4, 41.2}, {12.8, 41.4}, {11.6, 42.3}, {10.2, 43.3}, {8.6, 44.2}, {7.3, 44.6}},
	"LT": {{21.5, 55.3}, {24.0, 54.0}, {25.8, 54.2}, {26.5, 55.3}, {24.5, 56.2}, {22.0, 56.2}},
	"LU": {{5.8, 49.5}, {6.4, 49.5}, {6.5, 49.8}, {6.1, 50.1}, {5.8, 49.9}},
	"LV": {{21.3, 56.3}, {25.0, 55.8}, {27.5, 55.9}, {27.8, 57.3}, {25.0, 57.9}, {22.0, 57.3}},
	"MT": {{14.2, 35.8}, {14.6, 35.8}, {14.6, 36.1}, {14.2, 36.1}},
	"NL": {{3.6, 51.3}, {5.9, 50.8}, {6.1, 51.8}, {6.9, 52.3}, {6.8, 53.2}, {4.8, 53.0}, {4.0, 51.8}},
	"PL": {{15.0, 51.0}, {17.0, 50.4}, {19.5, 49.9}, {22.5, 49.8}, {23.5, 50.8}, {23.0, 52.5}, {21.0, 54.0}, {18.5, 54.4}, {16.0, 54.0}, {14.8, 52.8}},
	"PT": {{-8.8, 37.0}, {-7.6, 37.1}, {-7.2, 38.5}, {-7.0, 40.0}, {-6.9, 41.5}, {-8.2, 41.9}, {-8.7, 40.5}, {-9.3, 38.8}},
	"RO": {{21.5, 46.0}, {23.0, 44.8}, {25.5, 43.9}, {28.0, 44.0}, {28.6, 45.2}, {27.5, 46.8}, {25.0, 47.6}, {22.5, 47.5}},
	"SE": {{12.2, 58.0}, {13.5, 56.0}, {14.3, 55.5}, {16.0, 56.3}, {16.5, 57.5}, {18.5, 59.2}, {17.5, 60.5}, {17.0, 62.5}, {19.5, 64.5}, {21.0, 65.5}, {18.0, 66.0}, {14.0, 64.0}, {12.0, 61.0}},
	"SI": {{13.8, 45.8}, {14.8, 45.5}, {15.6, 45.8}, {16.0, 46.4}, {15.0, 46.5}, {14.0, 46.3}},
	"SK": {{16.9, 48.05}, {18.5, 47.75}, {20.5, 48.3}, {22.2, 48.4}, {21.5, 49.3}, {19.5, 49.5}, {18.1, 49.1}},
}

// contains runs the even-odd ray-casting test for one ring.
func contains(ring []model.Position, p model.Position) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i].Lon(), ring[i].Lat()
		xj, yj := ring[j].Lon(), ring[j].Lat()
		if (yi > p.Lat()) != (yj > p.Lat()) &&
			p.Lon() < (xj-xi)*(p.Lat()-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}
