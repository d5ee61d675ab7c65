package testdata

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/jask/vareditor/internal/database/repository"
)

// Repos bundles repos used by Seed.
type Repos struct {
	Settings *repository.SettingsRepo
	Chats    *repository.ChatRepo
}

// Result lists what Seed created.
type Result struct {
	Chats   []repository.Chat
	Globals int
}

type sampleChat struct {
	Name string
	Vars [][2]string
}

var sampleChats = []sampleChat{
	{Name: "The Rusty Tankard", Vars: [][2]string{{"innkeeper", "Marta"}, {"ale_price", "3"}, {"mood", "rowdy"}}},
	{Name: "Road to Emberfall", Vars: [][2]string{{"day", "1"}, {"weather", "rain"}, {"party_size", "4"}, {"rations", "12"}}},
	{Name: "Dragon Negotiation", Vars: [][2]string{{"dragon_name", "Vermithrax"}, {"gold_offered", "0"}, {"patience", "high"}}},
}

var sampleGlobals = [][2]string{
	{"player_name", "Ash"},
	{"player_class", "ranger"},
	{"world", "Aldmoor"},
}

// Seed creates sample conversations with local variables and adds global
// variables that are not set yet. Existing chats are left alone.
func Seed(ctx context.Context, repos Repos) (Result, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var res Result
	for _, sc := range sampleChats {
		meta := []byte(`{"variables":{}}`)
		var err error
		for _, kv := range sc.Vars {
			if meta, err = sjson.SetBytes(meta, "variables."+kv[0], kv[1]); err != nil {
				return Result{}, err
			}
		}
		if meta, err = sjson.SetBytes(meta, "variables.hp", strconv.Itoa(rng.Intn(90)+10)); err != nil {
			return Result{}, err
		}
		chat := repository.Chat{ID: uuid.NewString(), Name: sc.Name, Metadata: meta}
		if err := repos.Chats.Create(ctx, chat); err != nil {
			return Result{}, fmt.Errorf("create chat %s: %w", sc.Name, err)
		}
		res.Chats = append(res.Chats, chat)
	}

	doc, err := repos.Settings.Load(ctx, repository.SettingsNamespace)
	if err != nil {
		return Result{}, err
	}
	for _, kv := range sampleGlobals {
		path := repository.GlobalVariablesPath + "." + kv[0]
		if gjson.GetBytes(doc, path).Exists() {
			continue
		}
		if doc, err = sjson.SetBytes(doc, path, kv[1]); err != nil {
			return Result{}, err
		}
		res.Globals++
	}
	if err := repos.Settings.Save(ctx, repository.SettingsNamespace, doc); err != nil {
		return Result{}, err
	}
	return res, nil
}
