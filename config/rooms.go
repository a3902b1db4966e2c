package config

import (
	"fmt"
	"math/big"

	"commonroom/models"

	"github.com/spf13/viper"
)

// RoomCatalog exposes the immutable room and token catalog. Entries are
// loaded once at startup and never mutated by the booking core.
type RoomCatalog interface {
	Rooms() []models.Resource
	BySlug(slug string) (*models.Resource, error)
	Tokens() []models.Token
	TokenBySymbol(symbol string) (*models.Token, error)
}

type fileRoomCatalog struct {
	rooms  []models.Resource
	tokens []models.Token
}

type roomsFile struct {
	Tokens []models.Token `mapstructure:"tokens"`
	Rooms  []struct {
		Slug       string            `mapstructure:"slug"`
		Name       string            `mapstructure:"name"`
		CalendarID string            `mapstructure:"calendarId"`
		Rates      map[string]string `mapstructure:"rates"` // token symbol -> hourly rate, decimal
	} `mapstructure:"rooms"`
}

// LoadRoomCatalog reads the room catalog YAML named by ROOMS_FILE and
// converts every hourly rate into the token's smallest unit.
func LoadRoomCatalog() (RoomCatalog, error) {
	v := viper.New()
	v.SetConfigFile(AppConfig.RoomsFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read rooms file %s: %w", AppConfig.RoomsFile, err)
	}

	var raw roomsFile
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse rooms file: %w", err)
	}
	if len(raw.Tokens) == 0 {
		return nil, fmt.Errorf("rooms file declares no accepted tokens")
	}

	decimals := make(map[string]int, len(raw.Tokens))
	for _, tok := range raw.Tokens {
		decimals[tok.Symbol] = tok.Decimals
	}

	catalog := &fileRoomCatalog{tokens: raw.Tokens}
	for _, entry := range raw.Rooms {
		room := models.Resource{
			Slug:       entry.Slug,
			Name:       entry.Name,
			CalendarID: entry.CalendarID,
			Rates:      make(map[string]*big.Int),
		}
		for symbol, rate := range entry.Rates {
			dec, ok := decimals[symbol]
			if !ok {
				return nil, fmt.Errorf("room %s prices unknown token %s", entry.Slug, symbol)
			}
			amount, err := models.ParseAmount(rate, dec)
			if err != nil {
				return nil, fmt.Errorf("room %s rate for %s: %w", entry.Slug, symbol, err)
			}
			room.Rates[symbol] = amount
		}
		catalog.rooms = append(catalog.rooms, room)
	}
	return catalog, nil
}

func (c *fileRoomCatalog) Rooms() []models.Resource {
	return c.rooms
}

func (c *fileRoomCatalog) BySlug(slug string) (*models.Resource, error) {
	for i := range c.rooms {
		if c.rooms[i].Slug == slug {
			return &c.rooms[i], nil
		}
	}
	return nil, fmt.Errorf("unknown room %q", slug)
}

func (c *fileRoomCatalog) Tokens() []models.Token {
	return c.tokens
}

func (c *fileRoomCatalog) TokenBySymbol(symbol string) (*models.Token, error) {
	for i := range c.tokens {
		if c.tokens[i].Symbol == symbol {
			return &c.tokens[i], nil
		}
	}
	return nil, fmt.Errorf("unknown token %q", symbol)
}
