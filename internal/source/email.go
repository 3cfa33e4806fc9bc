package source

import (
	"bytes"
	"strings"

	"github.com/jhillyerd/enmime"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// readEmail ingests the supported attachments of a supplier e-mail and the
// tables of its HTML body. Nested e-mails are not followed.
func readEmail(f File, opts Options) (Set, error) {
	var set Set
	env, err := enmime.ReadEnvelope(bytes.NewReader(f.Data))
	if err != nil {
		return set, eris.Wrapf(err, "read e-mail %s", f.Name)
	}

	for _, att := range env.Attachments {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			continue
		}
		label := f.Name + " :: " + filename
		kind := KindOf(filename)
		if kind == KindUnknown || kind == KindEmail {
			zap.L().Debug("skip attachment", zap.String("file", label))
			continue
		}

		sub, err := Read(File{Name: label, Data: att.Content}, opts)
		if err != nil {
			set.Skipped = append(set.Skipped, Skip{Source: label, Err: err})
			continue
		}
		set.Tables = append(set.Tables, sub.Tables...)
		set.Skipped = append(set.Skipped, sub.Skipped...)
	}

	if env.HTML != "" {
		tables, err := ReadHTML(f.Name+" :: body", env.HTML)
		if err != nil {
			set.Skipped = append(set.Skipped, Skip{Source: f.Name + " :: body", Err: err})
		} else {
			set.Tables = append(set.Tables, tables...)
		}
	}
	return set, nil
}
