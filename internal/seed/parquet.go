package seed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/salesask/salesask/internal/schema"
	"github.com/salesask/salesask/internal/storage"
)

func WriteParquet(w io.Writer, sales []Sale) error {
	writer := parquet.NewGenericWriter[Sale](w)
	if _, err := writer.Write(sales); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

func Publish(ctx context.Context, objects storage.SnapshotWriter, sales []Sale, createdAt time.Time) (storage.ObjectInfo, error) {
	if len(sales) == 0 {
		return storage.ObjectInfo{}, fmt.Errorf("no sales to publish")
	}
	key, err := storage.BuildSnapshotPath(schema.SalesTable, createdAt, 0)
	if err != nil {
		return storage.ObjectInfo{}, err
	}

	var buf bytes.Buffer
	if err := WriteParquet(&buf, sales); err != nil {
		return storage.ObjectInfo{}, err
	}
	info, err := objects.Put(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), storage.PutOptions{
		ContentType: storage.ContentTypeParquet,
		Metadata: map[string]string{
			"table": schema.SalesTable,
			"rows":  strconv.Itoa(len(sales)),
		},
	})
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("upload snapshot: %w", err)
	}
	return info, nil
}
