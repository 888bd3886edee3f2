package persist

import (
	"context"
	"strings"
	"testing"
)

// characterSocialSchema cuts the character_social definition out of the
// embedded migration, so column assertions track the real schema.
func characterSocialSchema(t *testing.T) string {
	t.Helper()
	raw, err := migrations.ReadFile("migrations/00002_characters.sql")
	if err != nil {
		t.Fatalf("read embedded schema: %v", err)
	}
	src := string(raw)
	start := strings.Index(src, "CREATE TABLE character_social")
	if start < 0 {
		t.Fatal("character_social missing from the schema")
	}
	end := strings.Index(src[start:], ");")
	if end < 0 {
		t.Fatal("character_social definition not terminated")
	}
	return src[start : start+end]
}

// Every column the social upsert writes must exist in character_social;
// a drifted column name turns every friend-list write into a runtime
// error the client never sees.
func TestSocialWritesUseSchemaColumns(t *testing.T) {
	schema := characterSocialSchema(t)
	fq := &fakeQuerier{execs: make(chan string, 4)}
	r := NewCharacterRepo(fq)

	if err := r.AddSocial(context.Background(), 7, 9, SocialFlagFriend, "mage"); err != nil {
		t.Fatalf("AddSocial: %v", err)
	}
	insert := <-fq.execs

	open := strings.Index(insert, "(")
	closing := strings.Index(insert, ")")
	if open < 0 || closing < open {
		t.Fatalf("no column list in: %s", insert)
	}
	for _, c := range strings.Split(insert[open+1:closing], ",") {
		col := strings.TrimSpace(c)
		if !strings.Contains(schema, col+" ") {
			t.Fatalf("insert writes column %q which character_social does not define", col)
		}
	}
	if !strings.Contains(insert, "ON CONFLICT (guid, friend_guid)") {
		t.Fatalf("conflict target does not match the primary key: %s", insert)
	}

	if err := r.RemoveSocialFlag(context.Background(), 7, 9, SocialFlagFriend); err != nil {
		t.Fatalf("RemoveSocialFlag: %v", err)
	}
	for i := 0; i < 2; i++ {
		sql := <-fq.execs
		if !strings.Contains(sql, "friend_guid = $2") {
			t.Fatalf("social removal keyed on a column the schema lacks: %s", sql)
		}
	}
}
