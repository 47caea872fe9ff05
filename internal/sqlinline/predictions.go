package sqlinline

const QEnsurePredictionsTable = `--sql 7676ed2f-7e8e-4b1f-9901-59c7082d2c90
create table if not exists predictions (
  id          text primary key,
  model_id    text not null default '',
  version     text not null default '',
  status      text not null,
  output      jsonb,
  error       text not null default '',
  source      text not null,
  created_at  timestamptz not null default now(),
  updated_at  timestamptz not null default now()
);
`

// QUpsertPrediction keeps the first non-empty model id and refuses to move a
// final row back to a non-final status. Webhooks and polls can arrive out of order.
const QUpsertPrediction = `--sql d3f95d0a-2845-480e-a21c-cc3514eaedff
insert into predictions (id, model_id, version, status, output, error, source)
values ($1, $2, $3, $4, $5::jsonb, $6, $7)
on conflict (id) do update
set model_id   = coalesce(nullif(excluded.model_id, ''), predictions.model_id),
    version    = coalesce(nullif(excluded.version, ''), predictions.version),
    status     = excluded.status,
    output     = coalesce(excluded.output, predictions.output),
    error      = excluded.error,
    source     = excluded.source,
    updated_at = now()
where predictions.status not in ('succeeded', 'failed', 'canceled')
   or excluded.status in ('succeeded', 'failed', 'canceled');
`

const QListRecentPredictions = `--sql 9e55b5d6-cd05-4a77-a976-417cfbc85b59
select id, model_id, version, status, output, error, source, created_at, updated_at
from predictions
order by updated_at desc
limit $1;
`
