package bgen

import (
	"fmt"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/jmoiron/sqlx"
)

type BGIIndex struct {
	DB       *sqlx.DB
	Metadata *BGIMetadata
}

func (b *BGIIndex) Close() error {
	return b.DB.Close()
}

// OpenBGI opens a BGEN index (.bgi) file with the SQLite driver chosen at
// build time.
func OpenBGI(path string) (*BGIIndex, error) {
	bgi := &BGIIndex{
		Metadata: &BGIMetadata{},
	}

	// URI filenames have to begin with 'file:'; see
	// https://www.sqlite.org/c3ref/open.html . It seems that sqlite3 permitted
	// URI filenames without the file: prefix, but that is not standard.
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}

	db, err := sqlx.Connect(whichSQLiteDriver, path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	bgi.DB = db

	if err := prepareDB(db); err != nil {
		db.Close()
		return nil, pfx.Err(err)
	}

	// Not all index files have metadata; ignore any error
	_ = bgi.DB.Get(bgi.Metadata, "SELECT * FROM Metadata LIMIT 1")

	return bgi, nil
}

// VariantIndex conforms to the data found in the rows of the SQLite table
// "Variant" from BGEN Index (.bgi) files, and can be easily parsed with sqlx.
type VariantIndex struct {
	Chromosome        string
	Position          uint32
	RSID              string `db:"rsid"`
	NAlleles          uint16 `db:"number_of_alleles"`
	Allele1           Allele
	Allele2           Allele
	FileStartPosition uint `db:"file_start_position"`
	SizeInBytes       uint `db:"size_in_bytes"`
}

// BGIMetadata conforms to the data found in the rows of the SQLite table
// "Metadata" from more recent versions of BGEN.
type BGIMetadata struct {
	Filename           string
	FileSize           uint   `db:"file_size"`
	LastWriteTime      Time   `db:"last_write_time"`
	FirstThousandBytes []byte `db:"first_1000_bytes"`
	IndexCreationTime  Time   `db:"index_creation_time"`
}

// Variants lists the indexed variants in file order, which is the order in
// which LoadTable assigns site ordinals.
func (b *BGIIndex) Variants() ([]VariantIndex, error) {
	var out []VariantIndex
	if err := b.DB.Select(&out, "SELECT * FROM Variant ORDER BY file_start_position ASC"); err != nil {
		return nil, pfx.Err(err)
	}
	return out, nil
}

// SiteIndexes resolves rsIDs to site ordinals in file order. When an rsID
// occurs more than once, its first occurrence is used. Unknown rsIDs are an
// error.
func (b *BGIIndex) SiteIndexes(rsids []string) ([]int, error) {
	variants, err := b.Variants()
	if err != nil {
		return nil, err
	}

	ordinal := make(map[string]int, len(variants))
	for i, v := range variants {
		if _, seen := ordinal[v.RSID]; !seen {
			ordinal[v.RSID] = i
		}
	}

	out := make([]int, 0, len(rsids))
	for _, id := range rsids {
		i, ok := ordinal[id]
		if !ok {
			return nil, pfx.Err(fmt.Errorf("rsid %s is not in the index", id))
		}
		out = append(out, i)
	}

	return out, nil
}
