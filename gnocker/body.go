package gnocker

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber"
	"github.com/gofiber/utils"
	"github.com/zerbitx/filegnock/config"
	"github.com/zerbitx/filegnock/encode"
	"github.com/zerbitx/filegnock/mock"
)

// parseBody reads the request body the way the configured parser would accept it.
// Bodies whose content type the parser doesn't handle are ignored.
func (g *gnocker) parseBody(c *fiber.Ctx) (mock.Body, error) {
	raw := utils.ImmutableString(c.Body())
	contentType := strings.ToLower(string(c.Fasthttp.Request.Header.ContentType()))

	switch g.bodyParser {
	case config.ParserJSON:
		if !strings.Contains(contentType, "json") || strings.TrimSpace(raw) == "" {
			return mock.Body{}, nil
		}

		v, err := encode.Parse(raw)
		if err != nil {
			return mock.Body{}, fmt.Errorf("invalid json body: %w", err)
		}

		if object, ok := v.(map[string]interface{}); ok {
			return mock.FieldsBody(object), nil
		}

		return mock.Body{Raw: raw}, nil

	case config.ParserText:
		if !strings.HasPrefix(contentType, "text/") {
			return mock.Body{}, nil
		}
		return mock.StringBody(raw), nil

	case config.ParserURLEncoded:
		if !strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
			return mock.Body{}, nil
		}

		fields := []mock.Field{}
		data := map[string]interface{}{}
		c.Fasthttp.PostArgs().VisitAll(func(key, value []byte) {
			fields = append(fields, mock.Field{Key: string(key), Value: string(value)})
			data[string(key)] = string(value)
		})

		return mock.Body{Fields: fields, Data: data}, nil
	}

	return mock.StringBody(raw), nil
}
